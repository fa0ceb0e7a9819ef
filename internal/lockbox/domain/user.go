package domain

import "time"

// Role is the platform-level account role. Owners may create data rooms;
// guests only ever join rooms through invites. The same type doubles as the
// per-room share role.
type Role string

const (
	RoleOwner Role = "owner"
	RoleGuest Role = "guest"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool { return r == RoleOwner || r == RoleGuest }

type User struct {
	ID           string
	Email        string // stored lowercase, unique
	PasswordHash string // argon2id, PHC encoded
	FullName     string
	Role         Role
	IsVerified   bool
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
