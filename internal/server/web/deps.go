package web

import (
	"context"

	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/services"
)

// The handler layer talks to the services through these narrow interfaces
// so tests can substitute fakes.

type roomSvc interface {
	Info(ctx context.Context, roomID string) (*services.RoomInfo, error)
	Version(ctx context.Context, roomID string) (int64, error)
	Delete(ctx context.Context, roomID string) error
	CheckAccess(ctx context.Context, roomID, digest string) error
	VerifyPassword(ctx context.Context, roomID, digest string) (bool, error)
	SetPassword(ctx context.Context, roomID, currentDigest, newDigest string) error
}

type fileSvc interface {
	Upsert(ctx context.Context, roomID string, in services.FileUpsertInput) (*models.File, int64, error)
	Delete(ctx context.Context, roomID, fileID string) (int64, error)
	State(ctx context.Context, roomID string, since int64, limit, offset int) (*services.RoomState, error)
}

type syncSvc interface {
	Begin(ctx context.Context, roomID, clientID string, totalChunks, totalFiles int) (*services.BeginResult, error)
	Chunk(ctx context.Context, roomID, token string, inputs []services.FileUpsertInput) (*services.ChunkResult, error)
	Complete(ctx context.Context, roomID, token string) (*services.RoomState, error)
	SyncAll(ctx context.Context, roomID string, inputs []services.FileUpsertInput) (*services.RoomState, error)
}

type opSvc interface {
	Submit(ctx context.Context, roomID, pathHash, opEncrypted, clientID string, baseVersion *int64) (*services.SubmitOpResult, error)
	Fetch(ctx context.Context, roomID string, since int64, pathHash string, limit int) (*services.OpsPage, error)
	Snapshot(ctx context.Context, roomID, pathHash, contentEncrypted string, throughSeq int64) (*services.SnapshotResult, error)
}

type changesetSvc interface {
	Create(ctx context.Context, roomID, authorEncrypted, messageEncrypted string, inputs []services.ChangeInput) (*models.Changeset, error)
	Resolve(ctx context.Context, roomID, changesetID string, accept bool) (*models.Changeset, error)
	ResolveChange(ctx context.Context, roomID, changeID string, accept bool) (*models.Change, error)
}
