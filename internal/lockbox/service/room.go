package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

type RoomService struct {
	Store  store.Store
	Access *AccessService
	Audit  *Recorder
}

// Create makes a new data room owned by the actor. Guests cannot create
// rooms; ownership is a standing account role, not something an invite
// grants. The owner's share is written in the same transaction as the room,
// with no expiry.
func (s *RoomService) Create(ctx context.Context, actorID, name, description string) (domain.DataRoom, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DataRoom{}, ErrUserNotFound
		}
		return domain.DataRoom{}, err
	}
	if !actor.IsSuperuser && actor.Role != domain.RoleOwner {
		return domain.DataRoom{}, ErrRoleMismatch
	}

	room := domain.DataRoom{
		ID:          idx.New().String(),
		OwnerID:     actorID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Rooms().CreateRoom(ctx, room); err != nil {
			return err
		}
		return tx.Shares().CreateShare(ctx, domain.Share{
			ID:        idx.New().String(),
			RoomID:    room.ID,
			UserID:    actorID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.DataRoom{}, err
	}

	log.Info("data room created",
		slog.String("room_id", room.ID),
		slog.String("owner_id", actorID),
	)
	s.Audit.Record(ctx, actorID, "create_room", "data_room", room.ID, nil)

	return room, nil
}

// Get returns a room the actor can see.
func (s *RoomService) Get(ctx context.Context, actorID, roomID string) (domain.DataRoom, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleGuest); err != nil {
		return domain.DataRoom{}, err
	}
	room, err := s.Store.Rooms().GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DataRoom{}, ErrRoomNotFound
		}
		return domain.DataRoom{}, err
	}
	return room, nil
}

// List returns every room visible to the actor.
func (s *RoomService) List(ctx context.Context, actorID string) ([]domain.DataRoom, error) {
	return s.Access.VisibleRooms(ctx, actorID)
}

// Delete removes a room and, via the schema's cascades, its documents,
// invites and shares. Owner-level access required.
func (s *RoomService) Delete(ctx context.Context, actorID, roomID string) error {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return err
	}

	if err := s.Store.Rooms().DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}

	s.Audit.Record(ctx, actorID, "delete_room", "data_room", roomID, nil)
	return nil
}

// ListShares lists a room's membership. Owner-level access required.
func (s *RoomService) ListShares(ctx context.Context, actorID, roomID string) ([]domain.Share, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return nil, err
	}
	return s.Store.Shares().ListSharesByRoom(ctx, roomID)
}

// RevokeMember revokes a user's share in a room. One-way: a revoked member
// cannot re-enter even with a fresh invite.
func (s *RoomService) RevokeMember(ctx context.Context, actorID, roomID, userID string) error {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return err
	}

	share, err := s.Store.Shares().GetShareByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrShareNotFound
		}
		return err
	}

	if err := s.Store.Shares().RevokeShare(ctx, share.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrShareNotFound
		}
		return err
	}

	s.Audit.Record(ctx, actorID, "revoke_share", "share", share.ID, map[string]any{
		"room_id": roomID,
		"user_id": userID,
	})
	return nil
}

// DownloadHistory returns the room's document download audit trail.
// Owner-level access required.
func (s *RoomService) DownloadHistory(ctx context.Context, actorID, roomID string) ([]domain.AuditEntry, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return nil, err
	}
	return s.Audit.RoomDownloads(ctx, roomID)
}
