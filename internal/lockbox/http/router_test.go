package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/objstore"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store/drivers/sqlite"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	priv, err := jwtx.GenerateKey("EdDSA", 0)
	require.NoError(t, err)
	codec, err := jwtx.NewCodec(priv, "lockbox-test", time.Second)
	require.NoError(t, err)

	blobs, err := objstore.NewFS(t.TempDir(), "http://blobs.test", []byte("blob-secret"))
	require.NoError(t, err)

	audit := &service.Recorder{Store: st}
	access := &service.AccessService{Store: st}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(codec, "test", st, logger)
	r.TokenService = &service.TokenService{
		Codec:      codec,
		Store:      st,
		Audit:      audit,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	r.UserService = &service.UserService{Store: st, Audit: audit}
	r.RoomService = &service.RoomService{Store: st, Access: access, Audit: audit}
	r.InviteService = &service.InviteService{
		Store:      st,
		Access:     access,
		Audit:      audit,
		HMACSecret: []byte("invite-secret"),
	}
	r.DocumentService = &service.DocumentService{Store: st, Access: access, Blobs: blobs, Audit: audit}
	r.Blobs = blobs
	r.ApplyRoutes()

	// Seed an owner-role account; registration only produces guests.
	hash, err := cryptox.HashPassword("owner-password-123")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, st.Users().CreateUser(context.Background(), domain.User{
		ID:           idx.New().String(),
		Email:        "owner@example.com",
		PasswordHash: hash,
		Role:         domain.RoleOwner,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func login(t *testing.T, r *Router, email, password string) map[string]any {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody[map[string]any](t, rec)
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t)

	// Register a guest.
	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "guest@example.com", "password": "guest-password-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate registration conflicts.
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "guest@example.com", "password": "different",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Login and hit /me.
	tokens := login(t, r, "guest@example.com", "guest-password-123")
	access := tokens["access_token"].(string)
	refresh := tokens["refresh_token"].(string)

	rec = doJSON(t, r, http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[map[string]any](t, rec)
	require.Equal(t, "guest@example.com", me["email"])

	// No token, bad token: 401.
	rec = doJSON(t, r, http.MethodGet, "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, r, http.MethodGet, "/v1/me", "bogus", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A refresh token is not valid on protected endpoints.
	rec = doJSON(t, r, http.MethodGet, "/v1/me", refresh, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Rotate, then the old refresh token is dead.
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeBody[map[string]any](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout the new one; it stops refreshing too.
	newRefresh := rotated["refresh_token"].(string)
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": newRefresh})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": newRefresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoomAndInviteFlow(t *testing.T) {
	r := newTestRouter(t)

	ownerTokens := login(t, r, "owner@example.com", "owner-password-123")
	ownerAccess := ownerTokens["access_token"].(string)

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "guest@example.com", "password": "guest-password-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	guestTokens := login(t, r, "guest@example.com", "guest-password-123")
	guestAccess := guestTokens["access_token"].(string)

	// Owner creates a room; guest cannot.
	rec = doJSON(t, r, http.MethodPost, "/v1/rooms", ownerAccess, map[string]string{"name": "deal room"})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeBody[map[string]any](t, rec)
	roomID := room["id"].(string)

	rec = doJSON(t, r, http.MethodPost, "/v1/rooms", guestAccess, map[string]string{"name": "nope"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The guest cannot even see the room yet.
	rec = doJSON(t, r, http.MethodGet, "/v1/rooms/"+roomID, guestAccess, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Owner mints an invite; guest redeems it and gains access.
	rec = doJSON(t, r, http.MethodPost, "/v1/rooms/"+roomID+"/invites", ownerAccess, map[string]any{"single_use": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	invite := decodeBody[map[string]any](t, rec)
	require.NotEmpty(t, invite["token"])

	rec = doJSON(t, r, http.MethodPost, "/v1/invites/redeem", guestAccess, map[string]string{
		"token": invite["token"].(string),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	redeemed := decodeBody[map[string]any](t, rec)
	require.Equal(t, "joined", redeemed["status"])

	rec = doJSON(t, r, http.MethodGet, "/v1/rooms/"+roomID, guestAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Guest cannot mint or list invites.
	rec = doJSON(t, r, http.MethodPost, "/v1/rooms/"+roomID+"/invites", guestAccess, map[string]any{})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, r, http.MethodGet, "/v1/rooms/"+roomID+"/invites", guestAccess, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown invite token: 404.
	rec = doJSON(t, r, http.MethodPost, "/v1/invites/redeem", guestAccess, map[string]string{"token": "nope"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Owner revokes the guest; access is gone with a 403.
	me := decodeBody[map[string]any](t, doJSON(t, r, http.MethodGet, "/v1/me", guestAccess, nil))
	rec = doJSON(t, r, http.MethodDelete, "/v1/rooms/"+roomID+"/shares/"+me["id"].(string), ownerAccess, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/rooms/"+roomID, guestAccess, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccountStateGatesRequests(t *testing.T) {
	r := newTestRouter(t)

	seed := func(email string, active, verified bool) string {
		hash, err := cryptox.HashPassword("password-123456")
		require.NoError(t, err)
		now := time.Now().UTC()
		id := idx.New().String()
		require.NoError(t, r.TokenService.Store.Users().CreateUser(context.Background(), domain.User{
			ID:           id,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleGuest,
			IsVerified:   verified,
			IsActive:     active,
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
		return id
	}
	issue := func(userID string) string {
		token, _, err := r.TokenService.Codec.Issue(jwtx.KindAccess, userID, uuid.NewString(), time.Minute)
		require.NoError(t, err)
		return token
	}

	// A deactivated account's still-valid token stops working immediately.
	inactive := seed("inactive@example.com", false, true)
	rec := doJSON(t, r, http.MethodGet, "/v1/me", issue(inactive), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, r, http.MethodGet, "/v1/rooms", issue(inactive), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unverified accounts are locked out the same way.
	unverified := seed("unverified@example.com", true, false)
	rec = doJSON(t, r, http.MethodGet, "/v1/me", issue(unverified), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// An active, verified account passes the gate.
	ok := seed("ok@example.com", true, true)
	rec = doJSON(t, r, http.MethodGet, "/v1/me", issue(ok), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
