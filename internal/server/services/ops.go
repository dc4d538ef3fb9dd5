package services

import (
	"context"
	"fmt"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/ops"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// DefaultOpsLimit caps how many operations one fetch returns.
const DefaultOpsLimit = 1000

// OpsPage is the result of a since-based operation fetch.
type OpsPage struct {
	Ops     []*models.Operation
	OpSeq   int64
	HasMore bool
}

// SnapshotResult reports the outcome of a snapshot compaction.
type SnapshotResult struct {
	FileVersion int64
	SnapshotSeq int64
	RoomVersion int64
}

// OpService implements the operation log: sequenced encrypted deltas with
// optimistic-concurrency conflict detection, and snapshot compaction.
type OpService struct {
	rm repomanager.RepositoryManager
}

func NewOpService(rm repomanager.RepositoryManager) *OpService {
	return &OpService{rm: rm}
}

// Submit appends one encrypted edit delta to the room's operation log.
//
// baseVersion is the file version the client believed it was editing
// (nil when the client did not supply one). When other clients have
// appended operations the submitter has not folded into its base, the
// submission fails with *OpConflictError carrying those operations; the
// client rebases and retries. The server never transforms operations.
func (s *OpService) Submit(ctx context.Context, roomID, pathHash, opEncrypted, clientID string, baseVersion *int64) (*SubmitOpResult, error) {
	if pathHash == "" || opEncrypted == "" || clientID == "" {
		return nil, fmt.Errorf("%w: file_path_hash, op_encrypted and client_id are required", common.ErrorValidation)
	}

	var result *SubmitOpResult
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		fileRepo := files.NewPostgresRepository(tx)
		fileVersion, snapshotSeq, err := fileRepo.LockByPathHash(ctx, roomID, pathHash)
		if err != nil {
			return err
		}

		opRepo := ops.NewPostgresRepository(tx)
		if baseVersion != nil && (*baseVersion > 0 || fileVersion > 0) {
			conflicting, err := opRepo.SelectConflicting(ctx, roomID, pathHash, snapshotSeq, clientID)
			if err != nil {
				return err
			}
			if len(conflicting) > 0 && *baseVersion < fileVersion {
				return &OpConflictError{
					CurrentVersion: fileVersion,
					BaseVersion:    *baseVersion,
					ConflictingOps: conflicting,
				}
			}
		}

		seq, _, err := roomRepo.NextOpSeq(ctx, roomID)
		if err != nil {
			return err
		}

		var base int64
		if baseVersion != nil {
			base = *baseVersion
		}
		err = opRepo.Insert(ctx, &models.Operation{
			RoomID:       roomID,
			FilePathHash: pathHash,
			Seq:          seq,
			ClientID:     clientID,
			BaseVersion:  base,
			OpEncrypted:  opEncrypted,
		})
		if err != nil {
			return err
		}

		if fileVersion > 0 {
			if _, err := fileRepo.BumpVersion(ctx, roomID, pathHash); err != nil {
				return err
			}
		}

		result = &SubmitOpResult{Seq: seq, CurrentVersion: fileVersion + 1}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fetch returns up to limit operations with seq > since, optionally
// narrowed to one file, plus the room's current op_seq.
func (s *OpService) Fetch(ctx context.Context, roomID string, since int64, pathHash string, limit int) (*OpsPage, error) {
	if limit <= 0 || limit > DefaultOpsLimit {
		limit = DefaultOpsLimit
	}

	if err := s.rm.Rooms().Ensure(ctx, roomID); err != nil {
		return nil, err
	}
	room, err := s.rm.Rooms().Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	list, err := s.rm.Ops().SelectSince(ctx, roomID, since, pathHash, limit)
	if err != nil {
		return nil, err
	}
	return &OpsPage{Ops: list, OpSeq: room.OpSeq, HasMore: len(list) == limit}, nil
}

// Snapshot replaces the file body with a client-materialized compaction of
// (previous body + ops through throughSeq), then prunes those operations.
// The server trusts the client to have materialized correctly; it only
// guarantees the atomicity of body swap, snapshot_seq update and log prune.
func (s *OpService) Snapshot(ctx context.Context, roomID, pathHash, contentEncrypted string, throughSeq int64) (*SnapshotResult, error) {
	if pathHash == "" || contentEncrypted == "" {
		return nil, fmt.Errorf("%w: path_hash and content_encrypted are required", common.ErrorValidation)
	}

	var result *SnapshotResult
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		fileRepo := files.NewPostgresRepository(tx)
		fileVersion, err := fileRepo.ApplySnapshot(ctx, roomID, pathHash, contentEncrypted, throughSeq)
		if err != nil {
			return err
		}

		if _, err := ops.NewPostgresRepository(tx).DeleteThrough(ctx, roomID, pathHash, throughSeq); err != nil {
			return err
		}

		roomVersion, err := roomRepo.BumpVersion(ctx, roomID)
		if err != nil {
			return err
		}

		result = &SnapshotResult{FileVersion: fileVersion, SnapshotSeq: throughSeq, RoomVersion: roomVersion}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
