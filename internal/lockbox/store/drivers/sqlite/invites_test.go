package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUserAndRoom(t *testing.T, s *Store) (userID, roomID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	userID = idx.New().String()
	require.NoError(t, s.Users().CreateUser(ctx, domain.User{
		ID:           userID,
		Email:        "owner@example.com",
		PasswordHash: "x",
		Role:         domain.RoleOwner,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	roomID = idx.New().String()
	require.NoError(t, s.Rooms().CreateRoom(ctx, domain.DataRoom{
		ID:        roomID,
		OwnerID:   userID,
		Name:      "deal room",
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return userID, roomID
}

func TestConsumeInviteUse_CapIsExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, roomID := seedUserAndRoom(t, s)

	maxUses := 3
	inv := domain.Invite{
		ID:        idx.New().String(),
		RoomID:    roomID,
		TokenHash: "hash-cap",
		CreatedBy: userID,
		MaxUses:   &maxUses,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Invites().ConsumeInviteUse(ctx, inv.ID)
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrNotFound):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, maxUses, wins)
	require.Equal(t, attempts-maxUses, losses)

	got, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, maxUses, got.UsesCount)
}

func TestConsumeInviteUse_RevokedAndUnlimited(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, roomID := seedUserAndRoom(t, s)

	unlimited := domain.Invite{
		ID:        idx.New().String(),
		RoomID:    roomID,
		TokenHash: "hash-unlimited",
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, unlimited))

	for range 5 {
		require.NoError(t, s.Invites().ConsumeInviteUse(ctx, unlimited.ID))
	}

	require.NoError(t, s.Invites().RevokeInvite(ctx, unlimited.ID))
	err := s.Invites().ConsumeInviteUse(ctx, unlimited.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRotateRefreshToken_SingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndRoom(t, s)

	now := time.Now().UTC()
	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		JTI:       "jti-rotate",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	// replaced_by references refresh_tokens.id, so both successors must be
	// real rows before either rotation runs.
	successorA := domain.RefreshToken{
		ID: idx.New().String(), UserID: userID, JTI: "jti-succ-a",
		IssuedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	successorB := domain.RefreshToken{
		ID: idx.New().String(), UserID: userID, JTI: "jti-succ-b",
		IssuedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, successorA))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, successorB))

	require.NoError(t, s.RefreshTokens().RotateRefreshToken(ctx, rec.ID, successorA.ID))

	err := s.RefreshTokens().RotateRefreshToken(ctx, rec.ID, successorB.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, rec.JTI)
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.ReplacedBy)
	require.Equal(t, successorA.ID, *got.ReplacedBy)
}

func TestDeleteExpiredRefreshTokens_SpansRotationChains(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndRoom(t, s)

	// Build a fully expired two-link chain: old -> successor.
	now := time.Now().UTC()
	old := domain.RefreshToken{
		ID: idx.New().String(), UserID: userID, JTI: "jti-chain-old",
		IssuedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour),
	}
	succ := domain.RefreshToken{
		ID: idx.New().String(), UserID: userID, JTI: "jti-chain-succ",
		IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, old))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, succ))
	require.NoError(t, s.RefreshTokens().RotateRefreshToken(ctx, old.ID, succ.ID))

	// The sweep must not trip over the replaced_by self-reference.
	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now))

	_, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, old.JTI)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.RefreshTokens().GetRefreshTokenByJTI(ctx, succ.JTI)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestForeignKeys_EnforcedOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, roomID := seedUserAndRoom(t, s)

	require.NoError(t, s.Shares().CreateShare(ctx, domain.Share{
		ID:        idx.New().String(),
		RoomID:    roomID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		CreatedAt: time.Now().UTC(),
	}))

	// Pin one pooled connection with an open transaction so the delete
	// below is forced onto a different connection. The cascade only fires
	// if that connection enforces foreign keys too.
	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	require.NoError(t, s.Rooms().DeleteRoom(ctx, roomID))

	_, err = s.Shares().GetShareByRoomAndUser(ctx, roomID, userID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Dangling references are rejected outright.
	err = s.Shares().CreateShare(ctx, domain.Share{
		ID:        idx.New().String(),
		RoomID:    "no-such-room",
		UserID:    userID,
		Role:      domain.RoleGuest,
		CreatedAt: time.Now().UTC(),
	})
	require.Error(t, err)
}

func TestCreateShare_DuplicateRoomUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, roomID := seedUserAndRoom(t, s)

	now := time.Now().UTC()
	first := domain.Share{
		ID:        idx.New().String(),
		RoomID:    roomID,
		UserID:    userID,
		Role:      domain.RoleGuest,
		CreatedAt: now,
	}
	require.NoError(t, s.Shares().CreateShare(ctx, first))

	dup := first
	dup.ID = idx.New().String()
	err := s.Shares().CreateShare(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}
