package rooms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
)

// PostgresRepository implements room storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ensure(ctx context.Context, id string) error {
	query := `
		INSERT INTO rooms (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Room, error) {
	query := `
		SELECT id, version, op_seq, password_hash, created_at, updated_at
		FROM rooms WHERE id = $1
	`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, id))
}

// LockForUpdate acquires the room row lock that serializes every mutation
// on the room for the remainder of the enclosing transaction.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, id string) (*models.Room, error) {
	query := `
		SELECT id, version, op_seq, password_hash, created_at, updated_at
		FROM rooms WHERE id = $1
		FOR UPDATE
	`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanRoom(row *sql.Row) (*models.Room, error) {
	room := &models.Room{}
	err := row.Scan(&room.ID, &room.Version, &room.OpSeq, &room.PasswordHash, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select room: %w", err)
	}
	return room, nil
}

func (r *PostgresRepository) BumpVersion(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE rooms SET version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version
	`
	var version int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to bump room version: %w", err)
	}
	return version, nil
}

func (r *PostgresRepository) NextOpSeq(ctx context.Context, id string) (int64, int64, error) {
	query := `
		UPDATE rooms SET op_seq = op_seq + 1, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING op_seq, version
	`
	var seq, version int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&seq, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, common.ErrorNotFound
		}
		return 0, 0, fmt.Errorf("failed to advance op_seq: %w", err)
	}
	return seq, version, nil
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id string, hash *string) error {
	query := `
		UPDATE rooms SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle rooms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
