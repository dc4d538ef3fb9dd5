package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/repositories/changesets"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// ChangesetService implements the proposed-change review workflow: a
// changeset of opaque file replacements that collaborators accept or
// reject, wholesale or one change at a time.
type ChangesetService struct {
	rm repomanager.RepositoryManager
}

func NewChangesetService(rm repomanager.RepositoryManager) *ChangesetService {
	return &ChangesetService{rm: rm}
}

// Create writes the parent row and one pending change per file in a single
// transaction.
func (s *ChangesetService) Create(ctx context.Context, roomID, authorEncrypted, messageEncrypted string, inputs []ChangeInput) (*models.Changeset, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: changeset carries no changes", common.ErrorValidation)
	}
	for _, in := range inputs {
		if in.FilePathHash == "" || in.FilePathEncrypted == "" || in.NewContentEncrypted == "" {
			return nil, fmt.Errorf("%w: file_path_hash, file_path_encrypted and new_content_encrypted are required", common.ErrorValidation)
		}
	}

	cs := &models.Changeset{
		ID:               uuid.NewString(),
		RoomID:           roomID,
		AuthorEncrypted:  authorEncrypted,
		MessageEncrypted: messageEncrypted,
		Status:           models.ChangesetPending,
	}

	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		csRepo := changesets.NewPostgresRepository(tx)
		if err := csRepo.InsertChangeset(ctx, cs); err != nil {
			return err
		}
		for _, in := range inputs {
			ch := &models.Change{
				ID:                  uuid.NewString(),
				ChangesetID:         cs.ID,
				FilePathHash:        in.FilePathHash,
				FilePathEncrypted:   in.FilePathEncrypted,
				OldContentEncrypted: in.OldContentEncrypted,
				NewContentEncrypted: in.NewContentEncrypted,
				DiffEncrypted:       in.DiffEncrypted,
				Status:              models.ChangePending,
			}
			if err := csRepo.InsertChange(ctx, ch); err != nil {
				return err
			}
			cs.Changes = append(cs.Changes, ch)
		}

		_, err := roomRepo.BumpVersion(ctx, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// Resolve accepts or rejects the whole changeset. Accepting applies every
// still-pending change as a file upsert with the ordinary version-bump
// discipline; rejecting only flips statuses. Either way the changeset
// leaves pending exactly once and resolved_at is stamped.
func (s *ChangesetService) Resolve(ctx context.Context, roomID, changesetID string, accept bool) (*models.Changeset, error) {
	var result *models.Changeset
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		csRepo := changesets.NewPostgresRepository(tx)
		cs, err := csRepo.GetChangeset(ctx, roomID, changesetID)
		if err != nil {
			return err
		}
		if cs.Status != models.ChangesetPending {
			return fmt.Errorf("%w: changeset already resolved", common.ErrorValidation)
		}
		// A changeset whose children were decided one by one can only end
		// up partial; wholesale resolution would overwrite those verdicts.
		for _, ch := range cs.Changes {
			if ch.Status != models.ChangePending {
				return fmt.Errorf("%w: changeset has individually resolved changes", common.ErrorValidation)
			}
		}

		target := models.ChangeRejected
		parent := models.ChangesetRejected
		if accept {
			target = models.ChangeAccepted
			parent = models.ChangesetAccepted
		}

		for _, ch := range cs.Changes {
			if accept {
				if err := applyChangeTx(ctx, tx, roomID, ch); err != nil {
					return err
				}
			}
			if err := csRepo.UpdateChangeStatus(ctx, ch.ID, target); err != nil {
				return err
			}
			ch.Status = target
		}

		if !accept {
			// A rejection mutates no files but still changes what delta
			// readers see, so the room version advances once.
			if _, err := roomRepo.BumpVersion(ctx, roomID); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := csRepo.UpdateChangesetStatus(ctx, cs.ID, parent, &now); err != nil {
			return err
		}
		cs.Status = parent
		cs.ResolvedAt = &now
		result = cs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveChange accepts or rejects a single change. The first change
// decided this way moves the parent from pending to partial and stamps
// resolved_at; the parent never becomes accepted or rejected, since its
// children were not decided wholesale.
func (s *ChangesetService) ResolveChange(ctx context.Context, roomID, changeID string, accept bool) (*models.Change, error) {
	var result *models.Change
	err := dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if _, err := roomRepo.LockForUpdate(ctx, roomID); err != nil {
			return err
		}

		csRepo := changesets.NewPostgresRepository(tx)
		ch, err := csRepo.GetChange(ctx, roomID, changeID)
		if err != nil {
			return err
		}
		if ch.Status != models.ChangePending {
			return fmt.Errorf("%w: change already resolved", common.ErrorValidation)
		}

		if accept {
			if err := applyChangeTx(ctx, tx, roomID, ch); err != nil {
				return err
			}
			ch.Status = models.ChangeAccepted
		} else {
			if _, err := roomRepo.BumpVersion(ctx, roomID); err != nil {
				return err
			}
			ch.Status = models.ChangeRejected
		}
		if err := csRepo.UpdateChangeStatus(ctx, ch.ID, ch.Status); err != nil {
			return err
		}

		now := time.Now()
		if err := csRepo.MarkPartialIfPending(ctx, ch.ChangesetID, &now); err != nil {
			return err
		}

		result = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyChangeTx upserts the change's target file through the shared
// upsert path, bumping both the per-file and room versions.
func applyChangeTx(ctx context.Context, tx dbx.DBTX, roomID string, ch *models.Change) error {
	_, _, err := upsertFileTx(ctx, tx, roomID, FileUpsertInput{
		PathHash:         ch.FilePathHash,
		PathEncrypted:    ch.FilePathEncrypted,
		ContentEncrypted: &ch.NewContentEncrypted,
		IsSyncable:       true,
	})
	return err
}
