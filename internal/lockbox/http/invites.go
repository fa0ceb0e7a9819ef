package http

import (
	"net/http"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/pkg/httpx"
)

type InvitesHandler struct {
	InviteService *service.InviteService
}

type mintInviteRequest struct {
	AllowedEmail string     `json:"allowed_email,omitempty"`
	MaxUses      *int       `json:"max_uses,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SingleUse    bool       `json:"single_use,omitempty"`
}

type inviteResponse struct {
	ID           string     `json:"id"`
	RoomID       string     `json:"room_id"`
	AllowedEmail string     `json:"allowed_email,omitempty"`
	MaxUses      *int       `json:"max_uses,omitempty"`
	UsesCount    int        `json:"uses_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Revoked      bool       `json:"revoked"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toInviteResponse(inv domain.Invite) inviteResponse {
	return inviteResponse{
		ID:           inv.ID,
		RoomID:       inv.RoomID,
		AllowedEmail: inv.AllowedEmail,
		MaxUses:      inv.MaxUses,
		UsesCount:    inv.UsesCount,
		ExpiresAt:    inv.ExpiresAt,
		Revoked:      inv.Revoked,
		CreatedAt:    inv.CreatedAt,
	}
}

// mintInviteResponse is the only place the raw secret ever appears.
type mintInviteResponse struct {
	inviteResponse
	Token string `json:"token"`
}

func (h *InvitesHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	invite, token, err := h.InviteService.MintInvite(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		service.CreateInviteParams{
			AllowedEmail: req.AllowedEmail,
			MaxUses:      req.MaxUses,
			ExpiresAt:    req.ExpiresAt,
			SingleUse:    req.SingleUse,
		},
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, mintInviteResponse{
		inviteResponse: toInviteResponse(invite),
		Token:          token,
	})
}

func (h *InvitesHandler) List(w http.ResponseWriter, r *http.Request) {
	invites, err := h.InviteService.ListForRoom(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toInviteResponse(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvitesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	err := h.InviteService.Revoke(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("inviteID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	Token string `json:"token"`
}

type redeemResponse struct {
	Status string        `json:"status"`
	Share  shareResponse `json:"share"`
	RoomID string        `json:"room_id"`
}

func (h *InvitesHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	res, err := h.InviteService.Redeem(r.Context(), httpx.UserIDFromCtx(r.Context()), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, redeemResponse{
		Status: string(res.Status),
		RoomID: res.Share.RoomID,
		Share: shareResponse{
			ID:        res.Share.ID,
			UserID:    res.Share.UserID,
			Role:      string(res.Share.Role),
			ExpiresAt: res.Share.ExpiresAt,
			Revoked:   res.Share.Revoked,
			CreatedAt: res.Share.CreatedAt,
		},
	})
}
