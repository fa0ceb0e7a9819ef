package service

import (
	"errors"
	"fmt"
)

// Base error classes. Every service error wraps exactly one of these so the
// HTTP layer can map to a status code with a single errors.Is ladder.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	// Authentication / token lifecycle.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrUserInactive       = fmt.Errorf("user is inactive: %w", ErrForbidden)
	ErrUserUnverified     = fmt.Errorf("user is not verified: %w", ErrForbidden)
	ErrInvalidRefresh     = fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	ErrRefreshExpired     = fmt.Errorf("refresh token expired: %w", ErrUnauthorized)

	// Users.
	ErrEmailTaken   = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrUserNotFound = fmt.Errorf("user not found: %w", ErrNotFound)

	// Rooms and shares.
	ErrRoomNotFound  = fmt.Errorf("data room not found: %w", ErrNotFound)
	ErrShareNotFound = fmt.Errorf("share not found: %w", ErrNotFound)
	ErrShareRevoked  = fmt.Errorf("share has been revoked: %w", ErrForbidden)
	ErrShareExpired  = fmt.Errorf("share has expired: %w", ErrForbidden)
	ErrRoleMismatch  = fmt.Errorf("insufficient role: %w", ErrForbidden)
	ErrNoAccess      = fmt.Errorf("no access to data room: %w", ErrForbidden)

	// Invites.
	ErrInviteNotFound      = fmt.Errorf("invite not found: %w", ErrNotFound)
	ErrInviteRevoked       = fmt.Errorf("invite has been revoked: %w", ErrForbidden)
	ErrInviteExpired       = fmt.Errorf("invite has expired: %w", ErrForbidden)
	ErrInviteEmailMismatch = fmt.Errorf("invite restricted to another email: %w", ErrForbidden)
	ErrInviteMaxUses       = fmt.Errorf("invite use limit reached: %w", ErrForbidden)
	ErrInvalidInvite       = fmt.Errorf("invalid invite request: %w", ErrConflict)

	// Documents.
	ErrDocumentNotFound = fmt.Errorf("document not found: %w", ErrNotFound)
)
