package sqlite

import (
	"context"
	"database/sql"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type documentsRepo struct {
	db dbtx
}

const documentColumns = `id, data_room_id, uploaded_by, filename, content_type, size_bytes, sha256_hash, storage_key, uploaded_at`

func (r *documentsRepo) CreateDocument(ctx context.Context, d domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, data_room_id, uploaded_by, filename, content_type, size_bytes, sha256_hash, storage_key, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RoomID, d.UploadedBy, d.Filename, d.ContentType, d.SizeBytes,
		mapStringNull(d.SHA256Hash), d.StorageKey, d.UploadedAt,
	)
	return mapConstraint(err)
}

func (r *documentsRepo) GetDocumentByID(ctx context.Context, roomID, id string) (domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ? AND data_room_id = ?`,
		id, roomID)
	return scanDocument(row)
}

func (r *documentsRepo) ListDocumentsByRoom(ctx context.Context, roomID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE data_room_id = ? ORDER BY uploaded_at DESC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *documentsRepo) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var d domain.Document
	var sha sql.NullString
	err := row.Scan(
		&d.ID, &d.RoomID, &d.UploadedBy, &d.Filename, &d.ContentType,
		&d.SizeBytes, &sha, &d.StorageKey, &d.UploadedAt,
	)
	if err != nil {
		return domain.Document{}, mapNotFound(err)
	}
	d.SHA256Hash = mapNullString(sha)
	return d, nil
}
