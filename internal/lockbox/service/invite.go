package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

type InviteService struct {
	Store      store.Store
	Access     *AccessService
	Audit      *Recorder
	HMACSecret []byte
}

// CreateInviteParams are the creator-chosen constraints on an invite. A
// single-use invite is just MaxUses=1; SingleUse is a convenience flag that
// forces it.
type CreateInviteParams struct {
	AllowedEmail string
	MaxUses      *int
	ExpiresAt    *time.Time
	SingleUse    bool
}

// RedeemStatus says what redemption did to the membership.
type RedeemStatus string

const (
	RedeemJoined        RedeemStatus = "joined"
	RedeemAlreadyMember RedeemStatus = "already_member"
	RedeemRenewed       RedeemStatus = "renewed"
)

type RedeemResult struct {
	Status RedeemStatus
	Share  domain.Share
}

// MintInvite creates an invite for a room. Requires owner-level access. The
// raw secret is returned exactly once; only its keyed digest is stored.
func (s *InviteService) MintInvite(
	ctx context.Context,
	actorID, roomID string,
	params CreateInviteParams,
) (domain.Invite, string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	// 1. Only owner-level principals may mint invites.
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return domain.Invite{}, "", err
	}

	// 2. Validate constraints.
	if params.ExpiresAt != nil && !params.ExpiresAt.After(now) {
		return domain.Invite{}, "", ErrInvalidInvite
	}
	maxUses := params.MaxUses
	if params.SingleUse {
		one := 1
		maxUses = &one
	}
	if maxUses != nil && *maxUses < 1 {
		return domain.Invite{}, "", ErrInvalidInvite
	}

	// 3. Generate the secret and store only its digest.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	invite := domain.Invite{
		ID:           idx.New().String(),
		RoomID:       roomID,
		TokenHash:    cryptox.DigestToken(token, s.HMACSecret),
		CreatedBy:    actorID,
		AllowedEmail: strings.ToLower(strings.TrimSpace(params.AllowedEmail)),
		MaxUses:      maxUses,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    now,
	}

	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		return domain.Invite{}, "", err
	}

	log.Info("invite created",
		slog.String("invite_id", invite.ID),
		slog.String("room_id", roomID),
		slog.String("created_by", actorID),
	)
	s.Audit.Record(ctx, actorID, "create_invite", "invite", invite.ID, map[string]any{
		"room_id": roomID,
	})

	return invite, token, nil
}

// ListForRoom lists a room's invites. Requires owner-level access. Raw
// secrets are long gone; callers only ever see metadata.
func (s *InviteService) ListForRoom(ctx context.Context, actorID, roomID string) ([]domain.Invite, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return nil, err
	}
	return s.Store.Invites().ListInvitesByRoom(ctx, roomID)
}

// Revoke permanently disables an invite. Requires owner-level access on the
// invite's room. Revocation is one-way.
func (s *InviteService) Revoke(ctx context.Context, actorID, inviteID string) error {
	invite, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}

	if _, err := s.Access.Resolve(ctx, actorID, invite.RoomID, domain.RoleOwner); err != nil {
		return err
	}

	if err := s.Store.Invites().RevokeInvite(ctx, invite.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}

	s.Audit.Record(ctx, actorID, "revoke_invite", "invite", invite.ID, nil)
	return nil
}

// Redeem turns a raw invite secret into room membership for the calling
// user.
//
// Validation order is fixed: unknown token, revoked, expired, email
// restriction, use cap. The first failing check names the error; a revoked
// invite reports revoked even if it is also expired.
//
// Membership outcomes:
//   - no share yet: create one (consumes a use)
//   - active share: no-op, no use consumed
//   - revoked share: rejected; an invite never resurrects a revoked member
//   - expired share: renewed and repointed at this invite (consumes a use)
func (s *InviteService) Redeem(ctx context.Context, userID, rawToken string) (RedeemResult, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RedeemResult{}, ErrUserNotFound
		}
		return RedeemResult{}, err
	}

	// 1. Look up by keyed digest.
	invite, err := s.Store.Invites().GetInviteByTokenHash(ctx, cryptox.DigestToken(rawToken, s.HMACSecret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RedeemResult{}, ErrInviteNotFound
		}
		return RedeemResult{}, err
	}

	// 2..5. Ordered validity checks.
	if invite.Revoked {
		return RedeemResult{}, ErrInviteRevoked
	}
	if invite.Expired(now) {
		return RedeemResult{}, ErrInviteExpired
	}
	if invite.AllowedEmail != "" && !strings.EqualFold(invite.AllowedEmail, user.Email) {
		log.Warn("invite redemption email mismatch",
			slog.String("invite_id", invite.ID),
			slog.String("user_id", userID),
		)
		return RedeemResult{}, ErrInviteEmailMismatch
	}
	if invite.Exhausted() {
		return RedeemResult{}, ErrInviteMaxUses
	}

	// 6. Apply the membership change and consume a use atomically. The
	// conditional update in ConsumeInviteUse is the real cap enforcement;
	// the Exhausted check above is only a fast path.
	var result RedeemResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Shares().GetShareByRoomAndUser(ctx, invite.RoomID, userID)
		switch {
		case err == nil:
			if existing.Revoked {
				return ErrShareRevoked
			}
			if !existing.Expired(now) {
				result = RedeemResult{Status: RedeemAlreadyMember, Share: existing}
				return nil
			}
			// Expired membership: renew it through this invite.
			if err := tx.Invites().ConsumeInviteUse(ctx, invite.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrInviteMaxUses
				}
				return err
			}
			if err := tx.Shares().RenewShare(ctx, existing.ID, invite.ID); err != nil {
				return err
			}
			existing.ExpiresAt = nil
			existing.InviteID = &invite.ID
			result = RedeemResult{Status: RedeemRenewed, Share: existing}
			return nil

		case errors.Is(err, store.ErrNotFound):
			if err := tx.Invites().ConsumeInviteUse(ctx, invite.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrInviteMaxUses
				}
				return err
			}
			share := domain.Share{
				ID:        idx.New().String(),
				RoomID:    invite.RoomID,
				UserID:    userID,
				InviteID:  &invite.ID,
				Role:      domain.RoleGuest,
				CreatedAt: now,
			}
			if err := tx.Shares().CreateShare(ctx, share); err != nil {
				return err
			}
			result = RedeemResult{Status: RedeemJoined, Share: share}
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return RedeemResult{}, err
	}

	if result.Status != RedeemAlreadyMember {
		log.Info("invite redeemed",
			slog.String("invite_id", invite.ID),
			slog.String("room_id", invite.RoomID),
			slog.String("user_id", userID),
			slog.String("status", string(result.Status)),
		)
		s.Audit.Record(ctx, userID, "redeem_invite", "invite", invite.ID, map[string]any{
			"room_id": invite.RoomID,
			"status":  string(result.Status),
		})
	}

	return result, nil
}
