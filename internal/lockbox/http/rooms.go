package http

import (
	"net/http"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/pkg/httpx"
)

type RoomsHandler struct {
	RoomService *service.RoomService
}

type createRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type roomResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRoomResponse(room domain.DataRoom) roomResponse {
	return roomResponse{
		ID:          room.ID,
		OwnerID:     room.OwnerID,
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	}
}

func (h *RoomsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	room, err := h.RoomService.Create(r.Context(), httpx.UserIDFromCtx(r.Context()), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toRoomResponse(room))
}

func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.RoomService.List(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomResponse(room))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.RoomService.Get(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoomResponse(room))
}

func (h *RoomsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.RoomService.Delete(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shareResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *RoomsHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	shares, err := h.RoomService.ListShares(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, shareResponse{
			ID:        s.ID,
			UserID:    s.UserID,
			Role:      string(s.Role),
			ExpiresAt: s.ExpiresAt,
			Revoked:   s.Revoked,
			CreatedAt: s.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *RoomsHandler) RevokeMember(w http.ResponseWriter, r *http.Request) {
	err := h.RoomService.RevokeMember(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		r.PathValue("userID"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type downloadEntryResponse struct {
	ActorID    string         `json:"actor_id"`
	DocumentID string         `json:"document_id"`
	Details    map[string]any `json:"details,omitempty"`
	At         time.Time      `json:"at"`
}

func (h *RoomsHandler) DownloadHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.RoomService.DownloadHistory(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]downloadEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, downloadEntryResponse{
			ActorID:    e.ActorID,
			DocumentID: e.ObjectID,
			Details:    e.Details,
			At:         e.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
