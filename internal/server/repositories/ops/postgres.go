package ops

import (
	"context"
	"fmt"

	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
)

// PostgresRepository implements operation-log storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, op *models.Operation) error {
	query := `
		INSERT INTO operations (room_id, file_path_hash, seq, client_id, base_version, op_encrypted)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		op.RoomID, op.FilePathHash, op.Seq, op.ClientID, op.BaseVersion, op.OpEncrypted)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectSince(ctx context.Context, roomID string, sinceSeq int64, pathHash string, limit int) ([]*models.Operation, error) {
	query := `
		SELECT id, room_id, file_path_hash, seq, client_id, base_version, op_encrypted, created_at
		FROM operations
		WHERE room_id = $1 AND seq > $2 AND ($3 = '' OR file_path_hash = $3)
		ORDER BY seq
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, sinceSeq, pathHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	defer rows.Close()

	var result []*models.Operation
	for rows.Next() {
		item := &models.Operation{}
		err := rows.Scan(&item.ID, &item.RoomID, &item.FilePathHash, &item.Seq,
			&item.ClientID, &item.BaseVersion, &item.OpEncrypted, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SelectConflicting(ctx context.Context, roomID, pathHash string, afterSeq int64, excludeClient string) ([]*models.Operation, error) {
	query := `
		SELECT id, room_id, file_path_hash, seq, client_id, base_version, op_encrypted, created_at
		FROM operations
		WHERE room_id = $1 AND file_path_hash = $2 AND seq > $3 AND client_id <> $4
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, pathHash, afterSeq, excludeClient)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicting operations: %w", err)
	}
	defer rows.Close()

	var result []*models.Operation
	for rows.Next() {
		item := &models.Operation{}
		err := rows.Scan(&item.ID, &item.RoomID, &item.FilePathHash, &item.Seq,
			&item.ClientID, &item.BaseVersion, &item.OpEncrypted, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteThrough(ctx context.Context, roomID, pathHash string, throughSeq int64) (int64, error) {
	query := `
		DELETE FROM operations
		WHERE room_id = $1 AND file_path_hash = $2 AND seq <= $3
	`
	res, err := r.db.ExecContext(ctx, query, roomID, pathHash, throughSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to delete operations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
