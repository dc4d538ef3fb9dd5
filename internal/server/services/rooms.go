package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/dbx"
	"github.com/livepaste/livepaste/internal/server/password"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/repositories/rooms"
)

// RoomInfo describes a room: presence, its current version and whether a
// password gate is configured. The public info endpoint returns only the ID
// and the password flag; nothing else leaks before authentication.
type RoomInfo struct {
	ID          string
	Version     int64
	HasPassword bool
}

// RoomService implements room lifecycle and the password gate.
type RoomService struct {
	rm     repomanager.RepositoryManager
	hasher *password.Hasher
}

func NewRoomService(rm repomanager.RepositoryManager, hasher *password.Hasher) *RoomService {
	return &RoomService{rm: rm, hasher: hasher}
}

// Ensure lazily creates the room. Idempotent; does not bump the version.
func (s *RoomService) Ensure(ctx context.Context, roomID string) error {
	return s.rm.Rooms().Ensure(ctx, roomID)
}

// Info returns the public room descriptor, creating the room lazily.
func (s *RoomService) Info(ctx context.Context, roomID string) (*RoomInfo, error) {
	if err := s.rm.Rooms().Ensure(ctx, roomID); err != nil {
		return nil, err
	}
	room, err := s.rm.Rooms().Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomInfo{ID: room.ID, Version: room.Version, HasPassword: room.HasPassword()}, nil
}

// Version returns the current room version, creating the room lazily.
func (s *RoomService) Version(ctx context.Context, roomID string) (int64, error) {
	info, err := s.Info(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return info.Version, nil
}

// Delete is the kill switch: the room row goes away and every dependent
// row cascades with it. Returns common.ErrorNotFound for unknown rooms.
func (s *RoomService) Delete(ctx context.Context, roomID string) error {
	return s.rm.Rooms().Delete(ctx, roomID)
}

// CheckAccess verifies a presented password digest (or its absence)
// against the room. A room without a password admits everyone; an unknown
// room admits everyone because it has no password yet. Returns
// common.ErrorPasswordRequired when the gate rejects.
func (s *RoomService) CheckAccess(ctx context.Context, roomID, digest string) error {
	room, err := s.rm.Rooms().Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if !room.HasPassword() {
		return nil
	}
	if digest == "" {
		return common.ErrorPasswordRequired
	}
	ok, err := s.hasher.Verify(digest, *room.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorPasswordRequired
	}
	return nil
}

// VerifyPassword reports whether the presented digest opens the room.
func (s *RoomService) VerifyPassword(ctx context.Context, roomID, digest string) (bool, error) {
	err := s.CheckAccess(ctx, roomID, digest)
	if errors.Is(err, common.ErrorPasswordRequired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPassword sets, changes or removes the room password. The initial set
// requires no prior secret; changing or removing requires the current
// digest. An empty newDigest clears the password.
func (s *RoomService) SetPassword(ctx context.Context, roomID, currentDigest, newDigest string) error {
	return dbx.WithTx(ctx, s.rm.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		roomRepo := rooms.NewPostgresRepository(tx)
		if err := roomRepo.Ensure(ctx, roomID); err != nil {
			return err
		}
		room, err := roomRepo.LockForUpdate(ctx, roomID)
		if err != nil {
			return err
		}

		if room.HasPassword() {
			if currentDigest == "" {
				return common.ErrorPasswordRequired
			}
			ok, err := s.hasher.Verify(currentDigest, *room.PasswordHash)
			if err != nil {
				return err
			}
			if !ok {
				return common.ErrorPasswordRequired
			}
		}

		var hash *string
		if newDigest != "" {
			if len(newDigest) < password.MinLength {
				return fmt.Errorf("%w: password too short", common.ErrorValidation)
			}
			h, err := s.hasher.Hash(newDigest)
			if err != nil {
				return err
			}
			hash = &h
		}

		if err := roomRepo.SetPasswordHash(ctx, roomID, hash); err != nil {
			return err
		}
		_, err = roomRepo.BumpVersion(ctx, roomID)
		return err
	})
}
