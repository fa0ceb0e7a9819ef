package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	var details sql.NullString
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, object_type, object_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, mapStringNull(e.ActorID), e.Action, e.ObjectType, e.ObjectID, details, e.CreatedAt,
	)
	return err
}

func (r *auditLogsRepo) ListRoomDownloads(ctx context.Context, roomID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT al.id, al.actor_id, al.action, al.object_type, al.object_id, al.details, al.created_at
		FROM audit_logs al
		JOIN documents d ON d.id = al.object_id
		WHERE al.action = 'download_document' AND al.object_type = 'document' AND d.data_room_id = ?
		ORDER BY al.created_at DESC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var actorID, details sql.NullString
		if err := rows.Scan(&e.ID, &actorID, &e.Action, &e.ObjectType, &e.ObjectID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = mapNullString(actorID)
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
