package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/objstore"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/httpx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	TokenService    *service.TokenService
	UserService     *service.UserService
	RoomService     *service.RoomService
	InviteService   *service.InviteService
	DocumentService *service.DocumentService

	// Blobs, when non-nil, is mounted at /blobs to redeem presigned URLs.
	Blobs *objstore.FS
}

func NewRouter(
	verifier httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRooms()
	r.registerInvites()
	r.registerDocuments()
	r.registerSystem()

	if r.Blobs != nil {
		r.Mux.Handle("/blobs", r.Blobs)
	}
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with bearer-token authentication. Account state is
// re-checked on every request: a valid token stops working the moment its
// account is deactivated.
func (r *Router) secured(h http.Handler) http.Handler {
	return httpx.Chain(h, httpx.AuthnMiddleware(r.verifier, accountGate{store: r.store}))
}

// accountGate rejects token subjects whose accounts can no longer act.
type accountGate struct {
	store store.Store
}

func (g accountGate) CheckSubject(ctx context.Context, userID string) error {
	user, err := g.store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return service.ErrUserNotFound
		}
		return err
	}
	if !user.IsActive {
		return service.ErrUserInactive
	}
	if !user.IsVerified {
		return service.ErrUserUnverified
	}
	return nil
}

func (r *Router) registerAuth() {
	r.Mux.Handle("POST /v1/auth/register", &RegisterHandler{UserService: r.UserService})
	r.Mux.Handle("POST /v1/auth/login", &LoginHandler{TokenService: r.TokenService})
	r.Mux.Handle("POST /v1/auth/refresh", &RefreshHandler{TokenService: r.TokenService})
	r.Mux.Handle("POST /v1/auth/logout", &LogoutHandler{TokenService: r.TokenService})
	r.Mux.Handle("GET /v1/me", r.secured(&MeHandler{UserService: r.UserService}))
}

func (r *Router) registerRooms() {
	h := &RoomsHandler{RoomService: r.RoomService}

	r.Mux.Handle("POST /v1/rooms", r.secured(http.HandlerFunc(h.Create)))
	r.Mux.Handle("GET /v1/rooms", r.secured(http.HandlerFunc(h.List)))
	r.Mux.Handle("GET /v1/rooms/{roomID}", r.secured(http.HandlerFunc(h.Get)))
	r.Mux.Handle("DELETE /v1/rooms/{roomID}", r.secured(http.HandlerFunc(h.Delete)))
	r.Mux.Handle("GET /v1/rooms/{roomID}/shares", r.secured(http.HandlerFunc(h.ListShares)))
	r.Mux.Handle("DELETE /v1/rooms/{roomID}/shares/{userID}", r.secured(http.HandlerFunc(h.RevokeMember)))
	r.Mux.Handle("GET /v1/rooms/{roomID}/downloads", r.secured(http.HandlerFunc(h.DownloadHistory)))
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{InviteService: r.InviteService}

	r.Mux.Handle("POST /v1/rooms/{roomID}/invites", r.secured(http.HandlerFunc(h.Mint)))
	r.Mux.Handle("GET /v1/rooms/{roomID}/invites", r.secured(http.HandlerFunc(h.List)))
	r.Mux.Handle("DELETE /v1/invites/{inviteID}", r.secured(http.HandlerFunc(h.Revoke)))
	r.Mux.Handle("POST /v1/invites/redeem", r.secured(http.HandlerFunc(h.Redeem)))
}

func (r *Router) registerDocuments() {
	h := &DocumentsHandler{DocumentService: r.DocumentService}

	r.Mux.Handle("POST /v1/rooms/{roomID}/documents/uploads", r.secured(http.HandlerFunc(h.InitUpload)))
	r.Mux.Handle("POST /v1/rooms/{roomID}/documents", r.secured(http.HandlerFunc(h.ConfirmUpload)))
	r.Mux.Handle("GET /v1/rooms/{roomID}/documents", r.secured(http.HandlerFunc(h.List)))
	r.Mux.Handle("GET /v1/rooms/{roomID}/documents/{documentID}/download", r.secured(http.HandlerFunc(h.Download)))
	r.Mux.Handle("DELETE /v1/rooms/{roomID}/documents/{documentID}", r.secured(http.HandlerFunc(h.Delete)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store))
}
