package domain

import "time"

// DataRoom is a tenant boundary for shared documents. Ownership is fixed for
// the room's lifetime; there is no transfer operation.
type DataRoom struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
