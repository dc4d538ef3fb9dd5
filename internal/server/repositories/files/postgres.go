package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, room_id, path_hash, path_encrypted, content_encrypted,
	is_syncable, size_bytes, version, snapshot_seq, created_at, updated_at`

func (r *PostgresRepository) Upsert(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (room_id, path_hash, path_encrypted, content_encrypted, is_syncable, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, path_hash)
		DO UPDATE SET
			path_encrypted = EXCLUDED.path_encrypted,
			content_encrypted = EXCLUDED.content_encrypted,
			is_syncable = EXCLUDED.is_syncable,
			size_bytes = EXCLUDED.size_bytes,
			version = files.version + 1,
			updated_at = now()
		RETURNING ` + fileColumns
	row := r.db.QueryRowContext(ctx, query,
		file.RoomID, file.PathHash, file.PathEncrypted, file.ContentEncrypted, file.IsSyncable, file.SizeBytes)
	stored, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert file: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, roomID, fileID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE room_id = $1 AND id = $2`
	file, err := scanFile(r.db.QueryRowContext(ctx, query, roomID, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) LockByPathHash(ctx context.Context, roomID, pathHash string) (int64, int64, error) {
	query := `
		SELECT version, snapshot_seq FROM files
		WHERE room_id = $1 AND path_hash = $2
		FOR UPDATE
	`
	var version, snapshotSeq int64
	err := r.db.QueryRowContext(ctx, query, roomID, pathHash).Scan(&version, &snapshotSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to lock file: %w", err)
	}
	return version, snapshotSeq, nil
}

func (r *PostgresRepository) SelectUpdated(ctx context.Context, roomID string, sinceVersion int64, limit, offset int) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE room_id = $1 AND version > $2
		ORDER BY path_encrypted
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, sinceVersion, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		item, err := scanFileRows(rows)
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

func (r *PostgresRepository) SelectKeys(ctx context.Context, roomID string) ([]FileKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, path_hash FROM files WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to select file keys: %w", err)
	}
	defer rows.Close()

	var result []FileKey
	for rows.Next() {
		var k FileKey
		if err := rows.Scan(&k.ID, &k.PathHash); err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, roomID, fileID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE room_id = $1 AND id = $2`, roomID, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
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

func (r *PostgresRepository) DeleteByPathHashes(ctx context.Context, roomID string, pathHashes []string) (int64, error) {
	if len(pathHashes) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM files WHERE room_id = $1 AND path_hash = ANY($2::text[])`,
		roomID, pq.Array(pathHashes))
	if err != nil {
		return 0, fmt.Errorf("failed to delete files: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) BumpVersion(ctx context.Context, roomID, pathHash string) (int64, error) {
	query := `
		UPDATE files SET version = version + 1, updated_at = now()
		WHERE room_id = $1 AND path_hash = $2
		RETURNING version
	`
	var version int64
	if err := r.db.QueryRowContext(ctx, query, roomID, pathHash).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to bump file version: %w", err)
	}
	return version, nil
}

func (r *PostgresRepository) ApplySnapshot(ctx context.Context, roomID, pathHash, contentEncrypted string, throughSeq int64) (int64, error) {
	query := `
		UPDATE files SET
			content_encrypted = $3,
			snapshot_seq = $4,
			version = version + 1,
			updated_at = now()
		WHERE room_id = $1 AND path_hash = $2
		RETURNING version
	`
	var version int64
	err := r.db.QueryRowContext(ctx, query, roomID, pathHash, contentEncrypted, throughSeq).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to apply snapshot: %w", err)
	}
	return version, nil
}

func (r *PostgresRepository) InsertTombstone(ctx context.Context, roomID, pathHash string, deletedAtVersion int64) error {
	query := `
		INSERT INTO deleted_files (room_id, path_hash, deleted_at_version)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, roomID, pathHash, deletedAtVersion); err != nil {
		return fmt.Errorf("failed to insert tombstone: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectTombstones(ctx context.Context, roomID string, sinceVersion int64) ([]string, error) {
	query := `
		SELECT DISTINCT path_hash FROM deleted_files
		WHERE room_id = $1 AND deleted_at_version > $2
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, sinceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) PruneTombstones(ctx context.Context, horizon int64) (int64, error) {
	query := `
		DELETE FROM deleted_files df
		USING rooms r
		WHERE df.room_id = r.id AND df.deleted_at_version < r.version - $1
	`
	res, err := r.db.ExecContext(ctx, query, horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.RoomID, &f.PathHash, &f.PathEncrypted, &f.ContentEncrypted,
		&f.IsSyncable, &f.SizeBytes, &f.Version, &f.SnapshotSeq, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanFileRows(rows *sql.Rows) (*models.File, error) {
	f := &models.File{}
	err := rows.Scan(&f.ID, &f.RoomID, &f.PathHash, &f.PathEncrypted, &f.ContentEncrypted,
		&f.IsSyncable, &f.SizeBytes, &f.Version, &f.SnapshotSeq, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}
