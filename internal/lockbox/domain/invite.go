package domain

import "time"

// Invite is a redeemable capability scoped to one data room. Only the keyed
// digest of the one-time secret is persisted; the raw secret is returned to
// the creator exactly once and is unrecoverable afterwards.
type Invite struct {
	ID           string
	RoomID       string
	TokenHash    string // HMAC-SHA256 digest of the raw secret, unique
	CreatedBy    string
	AllowedEmail string // optional; "" = any authenticated user
	MaxUses      *int   // nil = unlimited
	UsesCount    int
	ExpiresAt    *time.Time // nil = no expiry
	Revoked      bool
	CreatedAt    time.Time
}

// Expired reports whether the invite has an expiry that has passed.
func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Exhausted reports whether the use cap has been reached.
func (i Invite) Exhausted() bool {
	return i.MaxUses != nil && i.UsesCount >= *i.MaxUses
}
