package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/objstore"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store/drivers/sqlite"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
)

// env wires every service against a real sqlite store, the way the binary
// does, so service tests exercise the same SQL and transactions.
type env struct {
	Store     store.Store
	Tokens    *TokenService
	Users     *UserService
	Rooms     *RoomService
	Invites   *InviteService
	Documents *DocumentService
	Access    *AccessService
	Blobs     *objstore.FS
	BlobRoot  string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	dsn := "file:" + filepath.Join(t.TempDir(), "svc.db") + "?_pragma=busy_timeout(5000)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	priv, err := jwtx.GenerateKey("EdDSA", 0)
	require.NoError(t, err)
	codec, err := jwtx.NewCodec(priv, "lockbox-test", time.Second)
	require.NoError(t, err)

	blobRoot := t.TempDir()
	blobs, err := objstore.NewFS(blobRoot, "http://blobs.test", []byte("blob-secret"))
	require.NoError(t, err)

	audit := &Recorder{Store: st}
	access := &AccessService{Store: st}

	return &env{
		Store: st,
		Tokens: &TokenService{
			Codec:      codec,
			Store:      st,
			Audit:      audit,
			AccessTTL:  jwtx.DefaultAccessTokenTTL,
			RefreshTTL: jwtx.DefaultRefreshTokenTTL,
		},
		Users: &UserService{Store: st, Audit: audit},
		Rooms: &RoomService{Store: st, Access: access, Audit: audit},
		Invites: &InviteService{
			Store:      st,
			Access:     access,
			Audit:      audit,
			HMACSecret: []byte("invite-secret"),
		},
		Documents: &DocumentService{Store: st, Access: access, Blobs: blobs, Audit: audit},
		Access:    access,
		Blobs:     blobs,
		BlobRoot:  blobRoot,
	}
}

// seedUser inserts a user directly, bypassing Register, so tests control
// every flag.
func (e *env) seedUser(t *testing.T, email string, role domain.Role, superuser bool) domain.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
		IsActive:     true,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.Store.Users().CreateUser(ctx, u))
	return u
}

func (e *env) seedRoom(t *testing.T, owner domain.User) domain.DataRoom {
	t.Helper()
	room, err := e.Rooms.Create(context.Background(), owner.ID, "deal room", "")
	require.NoError(t, err)
	return room
}
