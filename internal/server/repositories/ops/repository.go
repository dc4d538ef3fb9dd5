package ops

import (
	"context"

	"github.com/livepaste/livepaste/internal/server/models"
)

// Repository is the persistence contract for the per-room operation log.
type Repository interface {
	// Insert appends an operation row. Seq must already be allocated from
	// the room's op_seq counter.
	Insert(ctx context.Context, op *models.Operation) error

	// SelectSince returns up to limit operations with seq > sinceSeq in
	// ascending seq order. pathHash narrows the scan to one file when
	// non-empty.
	SelectSince(ctx context.Context, roomID string, sinceSeq int64, pathHash string, limit int) ([]*models.Operation, error)

	// SelectConflicting returns the operations on pathHash with
	// seq > afterSeq submitted by a client other than excludeClient,
	// ascending. These are what a conflicting writer must rebase onto.
	SelectConflicting(ctx context.Context, roomID, pathHash string, afterSeq int64, excludeClient string) ([]*models.Operation, error)

	// DeleteThrough removes the operations on pathHash with
	// seq <= throughSeq and returns how many were removed.
	DeleteThrough(ctx context.Context, roomID, pathHash string, throughSeq int64) (int64, error)
}
