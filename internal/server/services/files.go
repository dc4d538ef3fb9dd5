package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/repositories/changesets"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// DefaultStateLimit caps how many files one delta-read page returns.
const DefaultStateLimit = 1000

// FileService implements single-file upsert/delete and the paginated
// delta-read endpoint.
type FileService struct {
	rm repomanager.RepositoryManager
}

func NewFileService(rm repomanager.RepositoryManager) *FileService {
	return &FileService{rm: rm}
}

// Upsert stores or replaces one file keyed by (room, path_hash) and
// advances the room version in the same transaction. The stored row and
// the new room version are returned.
func (s *FileService) Upsert(ctx context.Context, roomID string, in FileUpsertInput) (*models.File, int64, error) {
	if err := validateUpsert(in); err != nil {
		return nil, 0, err
	}

	var (
		stored      *models.File
		roomVersion int64
	)
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		var err error
		stored, roomVersion, err = upsertFileTx(ctx, tx, roomID, in)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return stored, roomVersion, nil
}

// Delete removes the file identified by fileID, advances the room version
// and writes a tombstone stamped with the new version, all in one
// transaction. Returns the new room version.
func (s *FileService) Delete(ctx context.Context, roomID, fileID string) (int64, error) {
	var roomVersion int64
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		fileRepo := files.NewPostgresRepository(tx)
		file, err := fileRepo.GetByID(ctx, roomID, fileID)
		if err != nil {
			return err
		}
		if err := fileRepo.Delete(ctx, roomID, fileID); err != nil {
			return err
		}

		roomVersion, err = roomRepo.BumpVersion(ctx, roomID)
		if err != nil {
			return err
		}
		return fileRepo.InsertTombstone(ctx, roomID, file.PathHash, roomVersion)
	})
	if err != nil {
		return 0, err
	}
	return roomVersion, nil
}

// State implements the since-based delta read. A client that applies the
// response (replacing files by path_hash, removing deleted ones, paging
// until HasMore is false) converges on the full room state at the
// returned version. Tombstones are omitted for since=0 because a fresh
// client has nothing to reconcile.
func (s *FileService) State(ctx context.Context, roomID string, since int64, limit, offset int) (*RoomState, error) {
	if limit <= 0 || limit > DefaultStateLimit {
		limit = DefaultStateLimit
	}
	if offset < 0 {
		offset = 0
	}

	if err := s.rm.Rooms().Ensure(ctx, roomID); err != nil {
		return nil, err
	}

	state := &RoomState{}
	err := dbx.WithTx(ctx, s.rm.Conn(), &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		room, err := rooms.NewPostgresRepository(tx).Get(ctx, roomID)
		if err != nil {
			return err
		}
		state.Version = room.Version
		state.OpSeq = room.OpSeq

		fileRepo := files.NewPostgresRepository(tx)
		state.Files, err = fileRepo.SelectUpdated(ctx, roomID, since, limit, offset)
		if err != nil {
			return err
		}
		state.HasMore = len(state.Files) == limit

		if since > 0 {
			state.DeletedPathHashes, err = fileRepo.SelectTombstones(ctx, roomID, since)
			if err != nil {
				return err
			}
		}

		state.Changesets, err = changesets.NewPostgresRepository(tx).SelectPending(ctx, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func validateUpsert(in FileUpsertInput) error {
	if in.PathHash == "" || in.PathEncrypted == "" {
		return fmt.Errorf("%w: path_hash and path_encrypted are required", common.ErrorValidation)
	}
	if in.IsSyncable && in.ContentEncrypted == nil {
		return fmt.Errorf("%w: content_encrypted is required for syncable files", common.ErrorValidation)
	}
	return nil
}

// upsertFileTx performs the single-file upsert inside an existing transaction:
// the file row is inserted or replaced and the room version advanced.
// Shared by the file and changeset services so both write paths have
// identical semantics; the sync service upserts through the repository
// directly and advances the room version once per chunk.
func upsertFileTx(ctx context.Context, tx dbx.DBTX, roomID string, in FileUpsertInput) (*models.File, int64, error) {
	stored, err := files.NewPostgresRepository(tx).Upsert(ctx, &models.File{
		RoomID:           roomID,
		PathHash:         in.PathHash,
		PathEncrypted:    in.PathEncrypted,
		ContentEncrypted: in.ContentEncrypted,
		IsSyncable:       in.IsSyncable,
		SizeBytes:        in.SizeBytes,
	})
	if err != nil {
		return nil, 0, err
	}

	roomVersion, err := rooms.NewPostgresRepository(tx).BumpVersion(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	return stored, roomVersion, nil
}
