package jwtx

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid     = errors.New("jwtx: invalid token")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrNoSigner    = errors.New("jwtx: codec has no private key")
)

// Codec issues and verifies signed bearer tokens with a single asymmetric
// keypair. It is stateless: verification is purely cryptographic and never
// consults persistent state. The private key stays with the issuing process;
// a verify-only Codec can be built from the public key alone.
type Codec struct {
	method jwt.SigningMethod
	priv   crypto.PrivateKey // nil for verify-only codecs
	pub    crypto.PublicKey
	issuer string
	leeway time.Duration
}

// NewCodec builds a signing codec from a private key. Supported key types:
// *rsa.PrivateKey (RS256) and ed25519.PrivateKey (EdDSA).
func NewCodec(priv crypto.PrivateKey, issuer string, leeway time.Duration) (*Codec, error) {
	if leeway <= 0 {
		leeway = DefaultLeeway
	}

	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return &Codec{method: jwt.SigningMethodRS256, priv: k, pub: k.Public(), issuer: issuer, leeway: leeway}, nil
	case ed25519.PrivateKey:
		return &Codec{method: jwt.SigningMethodEdDSA, priv: k, pub: k.Public(), issuer: issuer, leeway: leeway}, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported private key type %T", priv)
	}
}

// NewVerifier builds a verify-only codec from a public key. Issue returns
// ErrNoSigner on such a codec.
func NewVerifier(pub crypto.PublicKey, issuer string, leeway time.Duration) (*Codec, error) {
	if leeway <= 0 {
		leeway = DefaultLeeway
	}

	switch k := pub.(type) {
	case *rsa.PublicKey:
		return &Codec{method: jwt.SigningMethodRS256, pub: k, issuer: issuer, leeway: leeway}, nil
	case ed25519.PublicKey:
		return &Codec{method: jwt.SigningMethodEdDSA, pub: k, issuer: issuer, leeway: leeway}, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported public key type %T", pub)
	}
}

// Issue signs a token of the given kind and returns it with its expiry time.
func (c *Codec) Issue(kind Kind, subject, jti string, ttl time.Duration) (string, time.Time, error) {
	if c.priv == nil {
		return "", time.Time{}, ErrNoSigner
	}

	now := time.Now().UTC()
	claims := NewClaims(kind, subject, jti, c.issuer, ttl, now)

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify parses and validates a token, returning its claims. Expiry failures
// map to ErrExpired (with the claims still returned, since the signature was
// valid), everything else (signature, structure, issuer, unknown algorithm)
// to ErrInvalid or a more specific sentinel wrapping it.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithLeeway(c.leeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// The signature checked out, only the expiry failed. Return the
			// parsed claims so callers can act on the identity of the expired
			// token (e.g. revoke its server-side record).
			if token != nil {
				if claims, ok := token.Claims.(*Claims); ok {
					return *claims, ErrExpired
				}
			}
			return Claims{}, ErrExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return Claims{}, ErrNotYetValid
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalid
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrInvalid, claims.Kind)
	}

	return *claims, nil
}

// Alg reports the signing algorithm name, e.g. "RS256".
func (c *Codec) Alg() string { return c.method.Alg() }
