package store

import (
	"context"
	"errors"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement it. Sub-repositories keep concerns tidy and let
// tests swap a single repo.
type Store interface {
	Users() Users
	Rooms() Rooms
	Shares() Shares
	Invites() Invites
	RefreshTokens() RefreshTokens
	Documents() Documents
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit or Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. The recommended way to run compound
	// operations (refresh rotation, invite redemption, room creation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user. Returns ErrAlreadyExists on a
	// duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by the unique lowercase email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// DeleteUser cascades to shares and refresh_tokens (per schema).
	DeleteUser(ctx context.Context, id string) error
}

type Rooms interface {
	CreateRoom(ctx context.Context, r domain.DataRoom) error

	GetRoomByID(ctx context.Context, id string) (domain.DataRoom, error)

	// ListAllRooms returns every room, newest first. Superuser listing.
	ListAllRooms(ctx context.Context) ([]domain.DataRoom, error)

	// ListRoomsOwnedBy returns rooms with the given owner, newest first.
	ListRoomsOwnedBy(ctx context.Context, ownerID string) ([]domain.DataRoom, error)

	// ListRoomsSharedWith returns rooms where the user holds a non-revoked
	// share, newest first.
	ListRoomsSharedWith(ctx context.Context, userID string) ([]domain.DataRoom, error)

	// DeleteRoom cascades to documents, invites and shares (per schema).
	DeleteRoom(ctx context.Context, id string) error
}

type Shares interface {
	// CreateShare inserts a new share. Returns ErrAlreadyExists when the
	// (room, user) unique key is violated; that constraint is the safety
	// net against concurrent duplicate grants.
	CreateShare(ctx context.Context, s domain.Share) error

	GetShareByRoomAndUser(ctx context.Context, roomID, userID string) (domain.Share, error)

	ListSharesByRoom(ctx context.Context, roomID string) ([]domain.Share, error)

	// RevokeShare flips revoked=1. One-way; no store method clears it.
	RevokeShare(ctx context.Context, id string) error

	// RenewShare clears expires_at and repoints provenance at the invite
	// that re-admitted the user. Only valid on non-revoked shares; returns
	// ErrNotFound if the share is missing or revoked.
	RenewShare(ctx context.Context, id string, inviteID string) error
}

type Invites interface {
	// CreateInvite writes a new invite (token_hash is the keyed digest of
	// the raw secret).
	CreateInvite(ctx context.Context, inv domain.Invite) error

	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// GetInviteByTokenHash is the O(1) redemption lookup.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	ListInvitesByRoom(ctx context.Context, roomID string) ([]domain.Invite, error)

	// ConsumeInviteUse atomically increments uses_count, guarded by the
	// cap and the revoked flag in the same statement:
	//
	//   UPDATE ... SET uses_count = uses_count + 1
	//   WHERE id = ? AND revoked = 0
	//     AND (max_uses IS NULL OR uses_count < max_uses)
	//
	// Returns ErrNotFound when no row qualifies, which callers treat as a
	// lost race on the cap (or a concurrent revocation). This is what
	// keeps N concurrent redemptions of a max_uses=N invite exact.
	ConsumeInviteUse(ctx context.Context, id string) error

	// RevokeInvite flips revoked=1. One-way.
	RevokeInvite(ctx context.Context, id string) error

	// DeleteExpiredInvites is housekeeping.
	DeleteExpiredInvites(ctx context.Context, now time.Time) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByJTI returns the record shadowing a signed refresh
	// token, revoked or not. Callers decide what a revoked hit means
	// (for refresh: replay).
	GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 by jti. Succeeds silently when
	// the record is already revoked (logout is idempotent).
	RevokeRefreshToken(ctx context.Context, jti string) error

	// RotateRefreshToken revokes the record and links its successor, but
	// only if it is still active:
	//
	//   UPDATE ... SET revoked = 1, replaced_by = ?
	//   WHERE id = ? AND revoked = 0
	//
	// Returns ErrNotFound when the record was already revoked, i.e. a
	// concurrent rotation won the race. Run inside the same transaction
	// that inserts the successor.
	RotateRefreshToken(ctx context.Context, id string, replacedByID string) error

	// RevokeAllUserRefreshTokens bulk-revokes every active token for a
	// user (e.g. on account deactivation).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error
}

type Documents interface {
	CreateDocument(ctx context.Context, d domain.Document) error

	// GetDocumentByID returns the document only if it belongs to roomID.
	GetDocumentByID(ctx context.Context, roomID, id string) (domain.Document, error)

	ListDocumentsByRoom(ctx context.Context, roomID string) ([]domain.Document, error)

	DeleteDocument(ctx context.Context, id string) error
}

type AuditLogs interface {
	// AppendAuditEntry writes one entry. Append-only; there is no update
	// or delete path.
	AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ListRoomDownloads returns download_document entries for documents in
	// the given room, newest first.
	ListRoomDownloads(ctx context.Context, roomID string) ([]domain.AuditEntry, error)
}
