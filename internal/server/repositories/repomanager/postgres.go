package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/livepaste/livepaste/internal/server/migrations"
	"github.com/livepaste/livepaste/internal/server/repositories/changesets"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/ops"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

type PostgresRepositoryManager struct {
	db         *sql.DB
	rooms      rooms.Repository
	files      files.Repository
	ops        ops.Repository
	changesets changesets.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Rooms() rooms.Repository {
	return m.rooms
}

func (m *PostgresRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *PostgresRepositoryManager) Ops() ops.Repository {
	return m.ops
}

func (m *PostgresRepositoryManager) Changesets() changesets.Repository {
	return m.changesets
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:         db,
		rooms:      rooms.NewPostgresRepository(db),
		files:      files.NewPostgresRepository(db),
		ops:        ops.NewPostgresRepository(db),
		changesets: changesets.NewPostgresRepository(db),
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
