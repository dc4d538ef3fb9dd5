package changesets

import (
	"context"
	"time"

	"github.com/livepaste/livepaste/internal/server/models"
)

// Repository is the persistence contract for changesets and their child
// changes.
type Repository interface {
	// InsertChangeset writes the parent row. Children are inserted with
	// InsertChange in the same transaction.
	InsertChangeset(ctx context.Context, cs *models.Changeset) error

	// InsertChange writes one child row.
	InsertChange(ctx context.Context, ch *models.Change) error

	// GetChangeset returns the changeset with its children, or
	// common.ErrorNotFound.
	GetChangeset(ctx context.Context, roomID, id string) (*models.Changeset, error)

	// GetChange returns a single change together with its parent's room
	// binding checked, or common.ErrorNotFound.
	GetChange(ctx context.Context, roomID, changeID string) (*models.Change, error)

	// SelectPending returns every pending changeset in the room with
	// children attached.
	SelectPending(ctx context.Context, roomID string) ([]*models.Changeset, error)

	// UpdateChangeStatus sets the status of one change.
	UpdateChangeStatus(ctx context.Context, changeID string, status models.ChangeStatus) error

	// UpdateChangesetStatus sets the parent status and stores resolvedAt;
	// a nil resolvedAt clears resolved_at.
	UpdateChangesetStatus(ctx context.Context, id string, status models.ChangesetStatus, resolvedAt *time.Time) error

	// MarkPartialIfPending moves a still-pending changeset to partial and
	// stamps resolved_at. A changeset that already left pending is left
	// untouched, preserving its original resolved_at.
	MarkPartialIfPending(ctx context.Context, id string, resolvedAt *time.Time) error
}
