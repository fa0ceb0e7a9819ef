package sqlite

import (
	"context"
	"database/sql"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type sharesRepo struct {
	db dbtx
}

const shareColumns = `id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at`

func (r *sharesRepo) CreateShare(ctx context.Context, s domain.Share) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shares (id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RoomID, s.UserID, mapOptionalString(s.InviteID), string(s.Role),
		mapOptionalTime(s.ExpiresAt), s.Revoked, s.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *sharesRepo) GetShareByRoomAndUser(ctx context.Context, roomID, userID string) (domain.Share, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+shareColumns+` FROM shares WHERE data_room_id = ? AND user_id = ?`,
		roomID, userID)
	return scanShare(row)
}

func (r *sharesRepo) ListSharesByRoom(ctx context.Context, roomID string) ([]domain.Share, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM shares WHERE data_room_id = ? ORDER BY created_at DESC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sharesRepo) RevokeShare(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shares SET revoked = 1 WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func (r *sharesRepo) RenewShare(ctx context.Context, id string, inviteID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shares SET expires_at = NULL, invite_id = ?
		WHERE id = ? AND revoked = 0`,
		inviteID, id)
	return affectedOrNotFound(res, err)
}

func scanShare(row rowScanner) (domain.Share, error) {
	var s domain.Share
	var inviteID sql.NullString
	var role string
	var expiresAt sql.NullTime
	err := row.Scan(&s.ID, &s.RoomID, &s.UserID, &inviteID, &role, &expiresAt, &s.Revoked, &s.CreatedAt)
	if err != nil {
		return domain.Share{}, mapNotFound(err)
	}
	s.InviteID = mapNullStringPtr(inviteID)
	s.Role = domain.Role(role)
	s.ExpiresAt = mapNullTimePtr(expiresAt)
	return s, nil
}
