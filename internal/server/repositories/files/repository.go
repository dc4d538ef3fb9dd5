package files

import (
	"context"

	"github.com/livepaste/livepaste/internal/server/models"
)

// FileKey identifies a stored file by internal ID and stable path hash.
// Used by sync reconciliation to diff the room against an observed set.
type FileKey struct {
	ID       string
	PathHash string
}

// Repository is the persistence contract for file rows and their deletion
// tombstones.
type Repository interface {
	// Upsert inserts or updates by (room_id, path_hash). On conflict the
	// per-file version is incremented and updated_at touched. The stored
	// row is returned.
	Upsert(ctx context.Context, file *models.File) (*models.File, error)

	// GetByID returns the file or common.ErrorNotFound.
	GetByID(ctx context.Context, roomID, fileID string) (*models.File, error)

	// LockByPathHash reads (version, snapshot_seq) under a row lock,
	// giving single-writer semantics for the operation-log conflict check.
	// Returns (0, 0, nil) when the file does not exist.
	LockByPathHash(ctx context.Context, roomID, pathHash string) (version, snapshotSeq int64, err error)

	// SelectUpdated returns files with per-file version > sinceVersion,
	// ordered by path_encrypted, paginated by limit/offset.
	SelectUpdated(ctx context.Context, roomID string, sinceVersion int64, limit, offset int) ([]*models.File, error)

	// SelectKeys returns the (id, path_hash) pairs of every file in the room.
	SelectKeys(ctx context.Context, roomID string) ([]FileKey, error)

	// Delete removes the file row. Returns common.ErrorNotFound if absent.
	Delete(ctx context.Context, roomID, fileID string) error

	// DeleteByPathHashes removes the given files in one statement.
	DeleteByPathHashes(ctx context.Context, roomID string, pathHashes []string) (int64, error)

	// BumpVersion advances the per-file version without touching content.
	// Returns the new version, or common.ErrorNotFound if the file is absent.
	BumpVersion(ctx context.Context, roomID, pathHash string) (int64, error)

	// ApplySnapshot replaces the file body with a client-materialized
	// compaction, records snapshot_seq and increments the per-file version.
	ApplySnapshot(ctx context.Context, roomID, pathHash, contentEncrypted string, throughSeq int64) (int64, error)

	// InsertTombstone records that path_hash was removed at the given room
	// version.
	InsertTombstone(ctx context.Context, roomID, pathHash string, deletedAtVersion int64) error

	// SelectTombstones returns the path hashes of tombstones with
	// deleted_at_version > sinceVersion.
	SelectTombstones(ctx context.Context, roomID string, sinceVersion int64) ([]string, error)

	// PruneTombstones removes, across all rooms, tombstones whose
	// deleted_at_version has fallen more than horizon versions behind the
	// owning room's version.
	PruneTombstones(ctx context.Context, horizon int64) (int64, error)
}
