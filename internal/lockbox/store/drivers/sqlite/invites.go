package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, data_room_id, token_hash, created_by, allowed_email, max_uses, uses_count, expires_at, revoked, created_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, data_room_id, token_hash, created_by, allowed_email, max_uses, uses_count, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.RoomID, inv.TokenHash, inv.CreatedBy, mapStringNull(inv.AllowedEmail),
		mapOptionalInt(inv.MaxUses), inv.UsesCount, mapOptionalTime(inv.ExpiresAt),
		inv.Revoked, inv.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id)
	return scanInvite(row)
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`, hash)
	return scanInvite(row)
}

func (r *invitesRepo) ListInvitesByRoom(ctx context.Context, roomID string) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inviteColumns+` FROM invites WHERE data_room_id = ? ORDER BY created_at DESC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ConsumeInviteUse claims one use of the invite. The cap and revoked checks
// live in the WHERE clause so concurrent redeemers cannot overshoot max_uses;
// losers see ErrNotFound.
func (r *invitesRepo) ConsumeInviteUse(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET uses_count = uses_count + 1
		WHERE id = ? AND revoked = 0
		  AND (max_uses IS NULL OR uses_count < max_uses)`,
		id)
	return affectedOrNotFound(res, err)
}

func (r *invitesRepo) RevokeInvite(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invites SET revoked = 1 WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM invites WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
	return err
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var inv domain.Invite
	var allowedEmail sql.NullString
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.RoomID, &inv.TokenHash, &inv.CreatedBy, &allowedEmail,
		&maxUses, &inv.UsesCount, &expiresAt, &inv.Revoked, &inv.CreatedAt,
	)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.AllowedEmail = mapNullString(allowedEmail)
	inv.MaxUses = mapNullIntPtr(maxUses)
	inv.ExpiresAt = mapNullTimePtr(expiresAt)
	return inv, nil
}
