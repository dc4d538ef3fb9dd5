package repomanager

import (
	"context"
	"database/sql"

	"github.com/livepaste/livepaste/internal/server/repositories/changesets"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/ops"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// RepositoryManager bundles the repositories bound to the shared database
// handle. Services use the bundled repositories for single-statement work
// and rebind fresh repositories to a transaction (via the repository
// constructors) for multi-statement handlers.
type RepositoryManager interface {
	Conn() *sql.DB
	Rooms() rooms.Repository
	Files() files.Repository
	Ops() ops.Repository
	Changesets() changesets.Repository
	RunMigrations(ctx context.Context) error
	Close() error
}
