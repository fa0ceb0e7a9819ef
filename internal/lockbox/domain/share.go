package domain

import "time"

// Share is the durable grant of a user's access to a data room. At most one
// share exists per (room, user) pair. Revocation is one-way: no core
// operation ever clears the flag.
type Share struct {
	ID        string
	RoomID    string
	UserID    string
	InviteID  *string // provenance only, never consulted for authorization
	Role      Role
	ExpiresAt *time.Time // nil = never expires
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the share has an expiry that has passed.
func (s Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Active reports whether the share currently grants access.
func (s Share) Active(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}
