package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/pkg/idx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

// Recorder appends audit entries. Writes are best-effort: a failed audit
// write is logged but never fails the operation that triggered it. A nil
// Recorder is valid and records nothing, which keeps service tests light.
type Recorder struct {
	Store store.Store
}

func (r *Recorder) Record(ctx context.Context, actorID, action, objectType, objectID string, details map[string]any) {
	if r == nil || r.Store == nil {
		return
	}

	entry := domain.AuditEntry{
		ID:         idx.New().String(),
		ActorID:    actorID,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.Store.AuditLogs().AppendAuditEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to append audit entry",
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

// RoomDownloads returns the download history for documents in a room,
// newest first.
func (r *Recorder) RoomDownloads(ctx context.Context, roomID string) ([]domain.AuditEntry, error) {
	return r.Store.AuditLogs().ListRoomDownloads(ctx, roomID)
}
