package services

import (
	"context"
	"fmt"
	"time"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
	"github.com/livepaste/livepaste/internal/server/syncsessions"
)

// BeginResult is handed to the client after a session is allocated.
type BeginResult struct {
	Token     string
	ExpiresIn time.Duration
}

// ChunkResult reports upload progress after one chunk lands.
type ChunkResult struct {
	ChunksRemaining int
	RoomVersion     int64
}

// SyncService implements the three-phase chunked upload protocol and its
// single-shot equivalent. Folder uploads arrive as many small chunks so
// that payload-inspecting proxies pass them through; the session ties the
// chunks together and the completion reconciles deletions.
type SyncService struct {
	rm       repomanager.RepositoryManager
	registry *syncsessions.Registry
	ttl      time.Duration
	states   *FileService
}

func NewSyncService(rm repomanager.RepositoryManager, registry *syncsessions.Registry, ttl time.Duration, states *FileService) *SyncService {
	return &SyncService{rm: rm, registry: registry, ttl: ttl, states: states}
}

// Begin allocates a sync session for the room and returns its token.
func (s *SyncService) Begin(ctx context.Context, roomID, clientID string, totalChunks, totalFiles int) (*BeginResult, error) {
	if totalChunks <= 0 || totalFiles < 0 {
		return nil, fmt.Errorf("%w: total_chunks must be positive", common.ErrorValidation)
	}
	if err := s.rm.Rooms().Ensure(ctx, roomID); err != nil {
		return nil, err
	}

	session := s.registry.Begin(roomID, clientID, totalChunks, totalFiles)
	return &BeginResult{Token: session.Token, ExpiresIn: s.ttl}, nil
}

// Chunk upserts the files carried by one chunk and records their path
// hashes on the session. The room version advances once per chunk. Chunks
// are idempotent under retry: re-observing a path hash is a set insert and
// re-upserting a file converges on the same content, although each retry
// advances the per-file versions and the room version again.
func (s *SyncService) Chunk(ctx context.Context, roomID, token string, inputs []FileUpsertInput) (*ChunkResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: chunk carries no files", common.ErrorValidation)
	}
	hashes := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if err := validateUpsert(in); err != nil {
			return nil, err
		}
		hashes = append(hashes, in.PathHash)
	}

	remaining, ok := s.registry.Observe(roomID, token, hashes)
	if !ok {
		return nil, common.ErrSessionExpired
	}

	var roomVersion int64
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		fileRepo := files.NewPostgresRepository(tx)
		for _, in := range inputs {
			if _, err := fileRepo.Upsert(ctx, fileFromInput(roomID, in)); err != nil {
				return err
			}
		}

		var err error
		roomVersion, err = roomRepo.BumpVersion(ctx, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ChunkResult{ChunksRemaining: remaining, RoomVersion: roomVersion}, nil
}

// Complete consumes the session and reconciles the room against the
// observed upload: every file whose path hash was never seen across the
// session's chunks is deleted, with tombstones stamped by a single version
// bump. When nothing needs deleting the version stays put. Returns the
// post-complete room state.
func (s *SyncService) Complete(ctx context.Context, roomID, token string) (*RoomState, error) {
	session, ok := s.registry.Take(roomID, token)
	if !ok {
		return nil, common.ErrSessionExpired
	}
	observed := session.ObservedPathHashes()

	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}
		return reconcileTx(ctx, tx, roomRepo, roomID, observed)
	})
	if err != nil {
		return nil, err
	}

	return s.states.State(ctx, roomID, 0, DefaultStateLimit, 0)
}

// SyncAll is the single-shot equivalent of begin + one chunk + complete:
// upsert everything, then reconcile deletions, in one transaction.
func (s *SyncService) SyncAll(ctx context.Context, roomID string, inputs []FileUpsertInput) (*RoomState, error) {
	observed := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if err := validateUpsert(in); err != nil {
			return nil, err
		}
		observed[in.PathHash] = struct{}{}
	}

	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		fileRepo := files.NewPostgresRepository(tx)
		for _, in := range inputs {
			if _, err := fileRepo.Upsert(ctx, fileFromInput(roomID, in)); err != nil {
				return err
			}
		}
		if len(inputs) > 0 {
			if _, err := roomRepo.BumpVersion(ctx, roomID); err != nil {
				return err
			}
		}
		return reconcileTx(ctx, tx, roomRepo, roomID, observed)
	})
	if err != nil {
		return nil, err
	}

	return s.states.State(ctx, roomID, 0, DefaultStateLimit, 0)
}

// reconcileTx deletes every file in the room not present in observed and
// writes one tombstone per deleted path, all stamped with a single version
// bump. A no-op reconciliation leaves the version untouched.
func reconcileTx(ctx context.Context, tx dbx.DBTX, roomRepo rooms.Repository, roomID string, observed map[string]struct{}) error {
	fileRepo := files.NewPostgresRepository(tx)
	keys, err := fileRepo.SelectKeys(ctx, roomID)
	if err != nil {
		return err
	}

	var stale []string
	for _, k := range keys {
		if _, ok := observed[k.PathHash]; !ok {
			stale = append(stale, k.PathHash)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	version, err := roomRepo.BumpVersion(ctx, roomID)
	if err != nil {
		return err
	}
	if _, err := fileRepo.DeleteByPathHashes(ctx, roomID, stale); err != nil {
		return err
	}
	for _, pathHash := range stale {
		if err := fileRepo.InsertTombstone(ctx, roomID, pathHash, version); err != nil {
			return err
		}
	}
	return nil
}

func fileFromInput(roomID string, in FileUpsertInput) *models.File {
	return &models.File{
		RoomID:           roomID,
		PathHash:         in.PathHash,
		PathEncrypted:    in.PathEncrypted,
		ContentEncrypted: in.ContentEncrypted,
		IsSyncable:       in.IsSyncable,
		SizeBytes:        in.SizeBytes,
	}
}
