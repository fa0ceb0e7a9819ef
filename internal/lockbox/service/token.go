package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

type TokenService struct {
	Codec      *jwtx.Codec
	Store      store.Store
	Audit      *Recorder
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies the user's password and issues a fresh token pair. The
// refresh token's jti is recorded server-side so it can be rotated and
// revoked later.
func (s *TokenService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	// 1. Look up the user. Not-found and bad-password collapse into the
	// same error so login does not leak which emails exist.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify the password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login password verification failed", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	// 3. Account gates.
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.IsVerified {
		return nil, ErrUserUnverified
	}

	// 4. Issue the pair and persist the refresh record.
	pair, err := s.issuePair(ctx, user.ID, nil)
	if err != nil {
		return nil, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	s.Audit.Record(ctx, user.ID, "login", "user", user.ID, nil)

	return pair, nil
}

// Refresh rotates a refresh token: it verifies the signed token, checks its
// server-side record, then atomically revokes the record and creates its
// successor. A replayed token (record already revoked) fails closed.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	// 1. Cryptographic verification. An expired-but-authentic refresh
	// token still yields its claims, so we can revoke the shadowing record
	// before rejecting it. A token of the wrong kind is invalid outright,
	// expired or not.
	claims, err := s.Codec.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) && claims.Kind == jwtx.KindRefresh && claims.ID != "" {
			_ = s.Store.RefreshTokens().RevokeRefreshToken(ctx, claims.ID)
			return nil, ErrRefreshExpired
		}
		return nil, ErrInvalidRefresh
	}
	if claims.Kind != jwtx.KindRefresh {
		return nil, ErrInvalidRefresh
	}

	// 2. Load the record shadowing this jti.
	rec, err := s.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	// 3. A revoked record means this token was already rotated or logged
	// out: treat it as a replay.
	if rec.Revoked {
		log.Warn("refresh token replay detected",
			slog.String("user_id", rec.UserID),
			slog.String("jti", rec.JTI),
		)
		return nil, ErrInvalidRefresh
	}
	if rec.Expired(now) {
		_ = s.Store.RefreshTokens().RevokeRefreshToken(ctx, rec.JTI)
		return nil, ErrRefreshExpired
	}

	// 4. Account gates still apply on refresh.
	user, err := s.Store.Users().GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 5. Rotate: revoke the old record and insert its successor in one
	// transaction. The conditional update inside RotateRefreshToken makes
	// concurrent rotations of the same token produce exactly one winner.
	pair, err := s.issuePair(ctx, user.ID, &rec)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the rotation race; the token was spent concurrently.
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	s.Audit.Record(ctx, user.ID, "refresh_token", "refresh_token", rec.ID, nil)

	return pair, nil
}

// Logout revokes the record behind the presented refresh token. It is
// idempotent: revoking an already-revoked token succeeds silently. An
// unverifiable token is rejected so the endpoint cannot be probed blind.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.Codec.Verify(refreshToken)
	if err != nil && !errors.Is(err, jwtx.ErrExpired) {
		return ErrInvalidRefresh
	}
	if claims.Kind != jwtx.KindRefresh || claims.ID == "" {
		return ErrInvalidRefresh
	}

	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, claims.ID); err != nil {
		return err
	}

	s.Audit.Record(ctx, claims.Subject, "logout", "refresh_token", claims.ID, nil)
	return nil
}

// issuePair signs a new access/refresh pair for the user and persists the
// refresh record. When rotating (old != nil) the old record is revoked and
// linked to the successor inside the same transaction that inserts it.
func (s *TokenService) issuePair(ctx context.Context, userID string, old *domain.RefreshToken) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, _, err := s.Codec.Issue(jwtx.KindAccess, userID, uuid.NewString(), s.AccessTTL)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refreshToken, refreshExpiry, err := s.Codec.Issue(jwtx.KindRefresh, userID, jti, s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: refreshExpiry,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// The successor row must exist before the old row's replaced_by
		// can reference it. A lost rotation race rolls the insert back.
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
			return err
		}
		if old != nil {
			return tx.RefreshTokens().RotateRefreshToken(ctx, old.ID, rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}
