package http

import (
	"net/http"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/pkg/httpx"
)

type DocumentsHandler struct {
	DocumentService *service.DocumentService
}

type initUploadRequest struct {
	ContentType string `json:"content_type"`
}

func (h *DocumentsHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req initUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	up, err := h.DocumentService.InitUpload(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		req.ContentType,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, up)
}

type confirmUploadRequest struct {
	StorageKey  string `json:"storage_key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SHA256Hash  string `json:"sha256_hash,omitempty"`
}

type documentResponse struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UploadedBy  string    `json:"uploaded_by"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256Hash  string    `json:"sha256_hash,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func toDocumentResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		RoomID:      d.RoomID,
		UploadedBy:  d.UploadedBy,
		Filename:    d.Filename,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		SHA256Hash:  d.SHA256Hash,
		UploadedAt:  d.UploadedAt,
	}
}

func (h *DocumentsHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StorageKey == "" || req.Filename == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "storage_key and filename are required")
		return
	}

	doc, err := h.DocumentService.ConfirmUpload(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		req.StorageKey,
		req.Filename,
		req.ContentType,
		req.SHA256Hash,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.DocumentService.List(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	url, err := h.DocumentService.Download(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		r.PathValue("documentID"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"download_url": url})
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.DocumentService.Delete(
		r.Context(),
		httpx.UserIDFromCtx(r.Context()),
		r.PathValue("roomID"),
		r.PathValue("documentID"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
