package service

import (
	"context"
	"errors"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
)

// GrantSource identifies which link of the grant chain admitted the user.
type GrantSource string

const (
	GrantSuperuser GrantSource = "superuser"
	GrantOwner     GrantSource = "owner"
	GrantShare     GrantSource = "share"
)

// Grant is a positive access decision: who got in, through which door, and
// with what effective role.
type Grant struct {
	Source  GrantSource
	Role    domain.Role
	ShareID string // set when Source == GrantShare
}

// AccessService answers the single question the rest of the system asks
// before touching a room: may this user act on this room at this role?
//
// Resolution walks an ordered chain of grant sources. Stronger sources come
// first, so a user who is both owner and (somehow) holder of a revoked share
// is admitted as owner; the share is never consulted.
type AccessService struct {
	Store store.Store
}

// Resolve checks access of user to room at the required role. The room must
// exist; a missing room is ErrRoomNotFound regardless of who asks.
//
// Chain order: superuser, owner, share. The first applicable link decides.
// A share that is revoked or expired does not fall through to "no access";
// it fails with its own error so the caller can say why.
func (s *AccessService) Resolve(ctx context.Context, userID, roomID string, required domain.Role) (Grant, error) {
	now := time.Now().UTC()

	room, err := s.Store.Rooms().GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Grant{}, ErrRoomNotFound
		}
		return Grant{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Grant{}, ErrNoAccess
		}
		return Grant{}, err
	}

	// Link 1: superusers hold owner-level access everywhere.
	if user.IsSuperuser {
		return Grant{Source: GrantSuperuser, Role: domain.RoleOwner}, nil
	}

	// Link 2: the room's owner.
	if room.OwnerID == userID {
		return Grant{Source: GrantOwner, Role: domain.RoleOwner}, nil
	}

	// Link 3: an explicit share.
	share, err := s.Store.Shares().GetShareByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Grant{}, ErrNoAccess
		}
		return Grant{}, err
	}
	if share.Revoked {
		return Grant{}, ErrShareRevoked
	}
	if share.Expired(now) {
		return Grant{}, ErrShareExpired
	}
	if !roleSatisfies(share.Role, required) {
		return Grant{}, ErrRoleMismatch
	}

	return Grant{Source: GrantShare, Role: share.Role, ShareID: share.ID}, nil
}

// VisibleRooms lists the rooms a user may see: all of them for a superuser,
// otherwise owned rooms plus rooms with an active share, deduplicated.
func (s *AccessService) VisibleRooms(ctx context.Context, userID string) ([]domain.DataRoom, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.IsSuperuser {
		return s.Store.Rooms().ListAllRooms(ctx)
	}

	owned, err := s.Store.Rooms().ListRoomsOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.Store.Rooms().ListRoomsSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned))
	out := make([]domain.DataRoom, 0, len(owned)+len(shared))
	for _, r := range owned {
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	for _, r := range shared {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// roleSatisfies reports whether role `have` covers requirement `want`.
// Owner covers everything; guest covers only guest.
func roleSatisfies(have, want domain.Role) bool {
	if have == domain.RoleOwner {
		return true
	}
	return have == want
}
