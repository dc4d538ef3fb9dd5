package rooms

import (
	"context"
	"time"

	"github.com/livepaste/livepaste/internal/server/models"
)

// Repository is the persistence contract for room rows. Implementations are
// bound to a dbx.DBTX so the same methods work inside and outside explicit
// transactions.
type Repository interface {
	// Ensure lazily creates the room. Idempotent.
	Ensure(ctx context.Context, id string) error

	// Get returns the room or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Room, error)

	// LockForUpdate reads the room row under a row-level lock, serializing
	// concurrent mutations on the same room. Returns common.ErrorNotFound
	// if the room does not exist.
	LockForUpdate(ctx context.Context, id string) (*models.Room, error)

	// BumpVersion advances the room version by one, touches updated_at and
	// returns the new version value.
	BumpVersion(ctx context.Context, id string) (int64, error)

	// NextOpSeq advances both op_seq and version by one and returns the new
	// values, in that order.
	NextOpSeq(ctx context.Context, id string) (int64, int64, error)

	// SetPasswordHash stores the hash (nil clears the password).
	SetPasswordHash(ctx context.Context, id string, hash *string) error

	// Delete removes the room; cascades take all dependent rows with it.
	// Returns common.ErrorNotFound if no row was deleted.
	Delete(ctx context.Context, id string) error

	// DeleteIdle removes every room whose updated_at is older than the
	// cutoff and returns how many were removed.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
