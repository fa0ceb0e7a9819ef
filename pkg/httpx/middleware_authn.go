package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

// TokenVerifier validates a signed bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (jwtx.Claims, error)
}

// SubjectGate checks the token subject against current account state. A
// signed token outliving its account must not keep working, so the gate is
// consulted on every authenticated request, not just at issuance.
type SubjectGate interface {
	CheckSubject(ctx context.Context, userID string) error
}

// AuthnMiddleware verifies the Authorization bearer token and requires an
// access-kind credential whose subject still passes the gate. Refresh tokens
// are never accepted on protected endpoints; they are only good for the
// refresh grant itself.
func AuthnMiddleware(v TokenVerifier, gate SubjectGate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if claims.Kind != jwtx.KindAccess {
				writeBearerError(w, "not an access token")
				return
			}

			if gate != nil {
				if err := gate.CheckSubject(ctx, claims.Subject); err != nil {
					log.Warn("subject rejected", "user_id", claims.Subject, "err", err)
					writeBearerError(w, "account cannot authenticate")
					return
				}
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc)
}
