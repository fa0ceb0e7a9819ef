package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, jti, issued_at, expires_at, revoked, replaced_by`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, jti, issued_at, expires_at, revoked, replaced_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.JTI, t.IssuedAt, t.ExpiresAt, t.Revoked, mapOptionalString(t.ReplacedBy),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE jti = ?`, jti)
	return scanRefreshToken(row)
}

// RevokeRefreshToken is intentionally unconditional so logout stays
// idempotent: revoking an already-revoked or unknown jti is not an error.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE jti = ?`, jti)
	return err
}

// RotateRefreshToken revokes the record and links its successor only while
// still active. ErrNotFound means a concurrent rotation already won.
func (r *refreshTokensRepo) RotateRefreshToken(ctx context.Context, id string, replacedByID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, replaced_by = ?
		WHERE id = ? AND revoked = 0`,
		replacedByID, id)
	return affectedOrNotFound(res, err)
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	return err
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	var replacedBy sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.JTI, &t.IssuedAt, &t.ExpiresAt, &t.Revoked, &replacedBy)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ReplacedBy = mapNullStringPtr(replacedBy)
	return t, nil
}
