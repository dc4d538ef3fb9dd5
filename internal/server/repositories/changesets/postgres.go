package changesets

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

// PostgresRepository implements changeset storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InsertChangeset(ctx context.Context, cs *models.Changeset) error {
	query := `
		INSERT INTO changesets (id, room_id, author_encrypted, message_encrypted, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		cs.ID, cs.RoomID, cs.AuthorEncrypted, cs.MessageEncrypted, cs.Status).Scan(&cs.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert changeset: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertChange(ctx context.Context, ch *models.Change) error {
	query := `
		INSERT INTO changes (id, changeset_id, file_path_hash, file_path_encrypted,
			old_content_encrypted, new_content_encrypted, diff_encrypted, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		ch.ID, ch.ChangesetID, ch.FilePathHash, ch.FilePathEncrypted,
		ch.OldContentEncrypted, ch.NewContentEncrypted, ch.DiffEncrypted, ch.Status)
	if err != nil {
		return fmt.Errorf("failed to insert change: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetChangeset(ctx context.Context, roomID, id string) (*models.Changeset, error) {
	query := `
		SELECT id, room_id, author_encrypted, message_encrypted, status, created_at, resolved_at
		FROM changesets
		WHERE room_id = $1 AND id = $2
	`
	cs := &models.Changeset{}
	err := r.db.QueryRowContext(ctx, query, roomID, id).Scan(
		&cs.ID, &cs.RoomID, &cs.AuthorEncrypted, &cs.MessageEncrypted, &cs.Status, &cs.CreatedAt, &cs.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select changeset: %w", err)
	}

	changes, err := r.selectChanges(ctx, cs.ID)
	if err != nil {
		return nil, err
	}
	cs.Changes = changes
	return cs, nil
}

func (r *PostgresRepository) GetChange(ctx context.Context, roomID, changeID string) (*models.Change, error) {
	query := `
		SELECT c.id, c.changeset_id, c.file_path_hash, c.file_path_encrypted,
			c.old_content_encrypted, c.new_content_encrypted, c.diff_encrypted, c.status
		FROM changes c
		JOIN changesets cs ON cs.id = c.changeset_id
		WHERE cs.room_id = $1 AND c.id = $2
	`
	ch := &models.Change{}
	err := r.db.QueryRowContext(ctx, query, roomID, changeID).Scan(
		&ch.ID, &ch.ChangesetID, &ch.FilePathHash, &ch.FilePathEncrypted,
		&ch.OldContentEncrypted, &ch.NewContentEncrypted, &ch.DiffEncrypted, &ch.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select change: %w", err)
	}
	return ch, nil
}

func (r *PostgresRepository) SelectPending(ctx context.Context, roomID string) ([]*models.Changeset, error) {
	query := `
		SELECT id, room_id, author_encrypted, message_encrypted, status, created_at, resolved_at
		FROM changesets
		WHERE room_id = $1 AND status = $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, models.ChangesetPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending changesets: %w", err)
	}
	defer rows.Close()

	var result []*models.Changeset
	for rows.Next() {
		cs := &models.Changeset{}
		err := rows.Scan(&cs.ID, &cs.RoomID, &cs.AuthorEncrypted, &cs.MessageEncrypted,
			&cs.Status, &cs.CreatedAt, &cs.ResolvedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, cs := range result {
		changes, err := r.selectChanges(ctx, cs.ID)
		if err != nil {
			return nil, err
		}
		cs.Changes = changes
	}
	return result, nil
}

func (r *PostgresRepository) selectChanges(ctx context.Context, changesetID string) ([]*models.Change, error) {
	query := `
		SELECT id, changeset_id, file_path_hash, file_path_encrypted,
			old_content_encrypted, new_content_encrypted, diff_encrypted, status
		FROM changes
		WHERE changeset_id = $1
		ORDER BY file_path_encrypted
	`
	rows, err := r.db.QueryContext(ctx, query, changesetID)
	if err != nil {
		return nil, fmt.Errorf("failed to select changes: %w", err)
	}
	defer rows.Close()

	var result []*models.Change
	for rows.Next() {
		ch := &models.Change{}
		err := rows.Scan(&ch.ID, &ch.ChangesetID, &ch.FilePathHash, &ch.FilePathEncrypted,
			&ch.OldContentEncrypted, &ch.NewContentEncrypted, &ch.DiffEncrypted, &ch.Status)
		if err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdateChangeStatus(ctx context.Context, changeID string, status models.ChangeStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE changes SET status = $2 WHERE id = $1`, changeID, status)
	if err != nil {
		return fmt.Errorf("failed to update change status: %w", err)
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

func (r *PostgresRepository) UpdateChangesetStatus(ctx context.Context, id string, status models.ChangesetStatus, resolvedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE changesets SET status = $2, resolved_at = $3 WHERE id = $1`,
		id, status, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update changeset status: %w", err)
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

func (r *PostgresRepository) MarkPartialIfPending(ctx context.Context, id string, resolvedAt *time.Time) error {
	query := `
		UPDATE changesets SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, id, models.ChangesetPartial, resolvedAt, models.ChangesetPending)
	if err != nil {
		return fmt.Errorf("failed to mark changeset partial: %w", err)
	}
	return nil
}
