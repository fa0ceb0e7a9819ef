package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID is the authenticated subject extracted from the access
	// token. The boundary layer resolves it into a full user record.
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeyClaims carries the full verified jwtx.Claims when needed.
	CtxKeyClaims ctxKey = "claims"
)

// UserIDFromCtx returns the authenticated subject, or "" when the request
// did not pass through AuthnMiddleware.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
