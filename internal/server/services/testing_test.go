package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/livepaste/livepaste/internal/server/repositories/changesets"
	"github.com/livepaste/livepaste/internal/server/repositories/files"
	"github.com/livepaste/livepaste/internal/server/repositories/ops"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// testManager is a RepositoryManager over a sqlmock database, letting the
// service tests assert the exact statement sequence of each transaction.
type testManager struct {
	db *sql.DB
}

func (m *testManager) Conn() *sql.DB                     { return m.db }
func (m *testManager) Rooms() rooms.Repository           { return rooms.NewPostgresRepository(m.db) }
func (m *testManager) Files() files.Repository           { return files.NewPostgresRepository(m.db) }
func (m *testManager) Ops() ops.Repository               { return ops.NewPostgresRepository(m.db) }
func (m *testManager) Changesets() changesets.Repository { return changesets.NewPostgresRepository(m.db) }
func (m *testManager) RunMigrations(context.Context) error {
	return nil
}
func (m *testManager) Close() error { return m.db.Close() }

func newManagerWithMock(t *testing.T) (*testManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &testManager{db: db}, mock
}

func expectRoomEnsure(mock sqlmock.Sqlmock, roomID string) {
	mock.ExpectExec(`INSERT\s+INTO\s+rooms\s*\(id\)`).
		WithArgs(roomID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectRoomLock(mock sqlmock.Sqlmock, roomID string, version, opSeq int64) {
	mock.ExpectQuery(`(?s)SELECT\s+id,\s+version,\s+op_seq,.*FOR\s+UPDATE`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "op_seq", "password_hash", "created_at", "updated_at"}).
			AddRow(roomID, version, opSeq, nil, testTime, testTime))
}

func expectRoomBump(mock sqlmock.Sqlmock, roomID string, newVersion int64) {
	mock.ExpectQuery(`(?s)UPDATE\s+rooms\s+SET\s+version\s*=\s*version\s*\+\s*1.*RETURNING\s+version`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(newVersion))
}
