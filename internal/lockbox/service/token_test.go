package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
)

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "Alice@Example.COM", "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, "bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// The access token carries the user as subject.
	claims, err := e.Tokens.Codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.KindAccess, claims.Kind)
	require.Equal(t, user.ID, claims.Subject)

	// A refresh record shadows the refresh token's jti.
	refreshClaims, err := e.Tokens.Codec.Verify(pair.RefreshToken)
	require.NoError(t, err)
	rec, err := e.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, refreshClaims.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, rec.UserID)
	require.False(t, rec.Revoked)
}

func TestLogin_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	_, err := e.Tokens.Login(ctx, "alice@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Unknown emails produce the same error as a wrong password.
	_, err = e.Tokens.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesLinearChain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	next, err := e.Tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old record is revoked and points at its successor.
	oldClaims, err := e.Tokens.Codec.Verify(pair.RefreshToken)
	require.NoError(t, err)
	oldRec, err := e.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, oldClaims.ID)
	require.NoError(t, err)
	require.True(t, oldRec.Revoked)
	require.NotNil(t, oldRec.ReplacedBy)

	newClaims, err := e.Tokens.Codec.Verify(next.RefreshToken)
	require.NoError(t, err)
	newRec, err := e.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, newClaims.ID)
	require.NoError(t, err)
	require.Equal(t, newRec.ID, *oldRec.ReplacedBy)
	require.False(t, newRec.Revoked)
}

func TestRefresh_ReplayRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	_, err = e.Tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Replaying the spent token fails closed.
	_, err = e.Tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	const racers = 4
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Tokens.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrUnauthorized)
		}
	}
	require.Equal(t, 1, wins)
}

func TestRefresh_ExpiredTokenRevokesRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	// Sign a refresh token that is already past its expiry and shadow it
	// with a matching record.
	jti := uuid.NewString()
	expired, _, err := e.Tokens.Codec.Issue(jwtx.KindRefresh, user.ID, jti, -time.Hour)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, e.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		JTI:       jti,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	_, err = e.Tokens.Refresh(ctx, expired)
	require.ErrorIs(t, err, ErrRefreshExpired)

	// Presenting an expired token burns its record.
	rec, err := e.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, jti)
	require.NoError(t, err)
	require.True(t, rec.Revoked)
}

func TestLogout_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, e.Tokens.Logout(ctx, pair.RefreshToken))
	require.NoError(t, e.Tokens.Logout(ctx, pair.RefreshToken))

	// The revoked token can no longer refresh.
	_, err = e.Tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Garbage is rejected, not silently accepted.
	err = e.Tokens.Logout(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com", domain.RoleOwner, false)

	pair, err := e.Tokens.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	// An access token is not a refresh token, even though both verify.
	_, err = e.Tokens.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// An expired access token is still the wrong kind, not an expired
	// refresh credential.
	expiredAccess, _, err := e.Tokens.Codec.Issue(jwtx.KindAccess, user.ID, uuid.NewString(), -time.Hour)
	require.NoError(t, err)
	_, err = e.Tokens.Refresh(ctx, expiredAccess)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	require.NotErrorIs(t, err, ErrRefreshExpired)
}
