package domain

import "time"

// AuditEntry is an append-only record of a state-changing operation. The
// core writes these fire-and-forget; nothing in the core reads them back
// except the per-room download report.
type AuditEntry struct {
	ID         string
	ActorID    string // may be empty for unauthenticated actions
	Action     string // e.g. "create_invite", "refresh_token"
	ObjectType string
	ObjectID   string
	Details    map[string]any
	CreatedAt  time.Time
}
