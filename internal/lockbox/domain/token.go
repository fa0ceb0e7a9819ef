package domain

import "time"

// TokenPair is what the auth endpoints return: a short-lived access token
// and the refresh token that can mint its successor.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"` // always "bearer"
	ExpiresIn    time.Duration `json:"expires_in"` // seconds until access expiry
}

// RefreshToken is the server-side record shadowing an issued refresh
// credential, keyed by the jti embedded in the signed token.
//
// Records form a strict linear rotation chain: redeeming a refresh token
// revokes its record and links it to the successor via ReplacedBy, so a
// replayed (stolen) token is always found already revoked. Revoked is
// terminal; no transition leaves it.
type RefreshToken struct {
	ID         string
	UserID     string
	JTI        string // unique, embedded in the signed token
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string // id of the successor record, set on rotation
}

// Expired reports whether the record's expiry has passed.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
