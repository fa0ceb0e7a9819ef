package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/objstore"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

type DocumentService struct {
	Store  store.Store
	Access *AccessService
	Blobs  objstore.Store
	Audit  *Recorder
}

// Upload is the two-step upload handshake: InitUpload hands out a presigned
// PUT URL, ConfirmUpload records the metadata once the bytes are in place.
type Upload struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

// InitUpload presigns an upload slot in the room. Any member may upload.
func (s *DocumentService) InitUpload(ctx context.Context, actorID, roomID, contentType string) (Upload, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleGuest); err != nil {
		return Upload{}, err
	}

	key := fmt.Sprintf("rooms/%s/%s", roomID, idx.New().String())
	uploadURL, err := s.Blobs.PresignPut(ctx, key, contentType, objstore.DefaultPutTTL)
	if err != nil {
		return Upload{}, err
	}

	return Upload{StorageKey: key, UploadURL: uploadURL}, nil
}

// ConfirmUpload records a document after its bytes landed in the object
// store. The blob must actually exist; size is taken from the store, not
// from the client.
func (s *DocumentService) ConfirmUpload(
	ctx context.Context,
	actorID, roomID, storageKey, filename, contentType, sha256Hash string,
) (domain.Document, error) {
	log := slogx.FromContext(ctx)

	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleGuest); err != nil {
		return domain.Document{}, err
	}

	// The key must point into this room; otherwise a member of room A
	// could register room B's blobs.
	if prefix := fmt.Sprintf("rooms/%s/", roomID); len(storageKey) <= len(prefix) || storageKey[:len(prefix)] != prefix {
		return domain.Document{}, ErrDocumentNotFound
	}

	info, err := s.Blobs.Head(ctx, storageKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return domain.Document{}, ErrDocumentNotFound
		}
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:          idx.New().String(),
		RoomID:      roomID,
		UploadedBy:  actorID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   info.SizeBytes,
		SHA256Hash:  sha256Hash,
		StorageKey:  storageKey,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.Store.Documents().CreateDocument(ctx, doc); err != nil {
		return domain.Document{}, err
	}

	log.Info("document uploaded",
		slog.String("document_id", doc.ID),
		slog.String("room_id", roomID),
		slog.String("uploaded_by", actorID),
		slog.Int64("size_bytes", doc.SizeBytes),
	)
	s.Audit.Record(ctx, actorID, "upload_document", "document", doc.ID, map[string]any{
		"room_id":  roomID,
		"filename": filename,
	})

	return doc, nil
}

// List returns the room's documents, newest first.
func (s *DocumentService) List(ctx context.Context, actorID, roomID string) ([]domain.Document, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleGuest); err != nil {
		return nil, err
	}
	return s.Store.Documents().ListDocumentsByRoom(ctx, roomID)
}

// Download presigns a short-lived GET URL for a document and records the
// download in the audit trail.
func (s *DocumentService) Download(ctx context.Context, actorID, roomID, documentID string) (string, error) {
	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleGuest); err != nil {
		return "", err
	}

	doc, err := s.Store.Documents().GetDocumentByID(ctx, roomID, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrDocumentNotFound
		}
		return "", err
	}

	downloadURL, err := s.Blobs.PresignGet(ctx, doc.StorageKey, doc.Filename, objstore.DefaultGetTTL)
	if err != nil {
		return "", err
	}

	s.Audit.Record(ctx, actorID, "download_document", "document", doc.ID, map[string]any{
		"room_id":  roomID,
		"filename": doc.Filename,
	})

	return downloadURL, nil
}

// Delete removes a document's record and blob. Owner-level access required.
func (s *DocumentService) Delete(ctx context.Context, actorID, roomID, documentID string) error {
	log := slogx.FromContext(ctx)

	if _, err := s.Access.Resolve(ctx, actorID, roomID, domain.RoleOwner); err != nil {
		return err
	}

	doc, err := s.Store.Documents().GetDocumentByID(ctx, roomID, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	if err := s.Store.Documents().DeleteDocument(ctx, doc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	// Blob cleanup is best-effort; the record is already gone and
	// housekeeping can sweep orphans.
	if err := s.Blobs.Delete(ctx, doc.StorageKey); err != nil {
		log.Warn("failed to delete blob",
			slog.String("storage_key", doc.StorageKey),
			slog.Any("error", err),
		)
	}

	s.Audit.Record(ctx, actorID, "delete_document", "document", doc.ID, map[string]any{
		"room_id": roomID,
	})
	return nil
}
