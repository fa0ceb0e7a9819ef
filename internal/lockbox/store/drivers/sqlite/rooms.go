package sqlite

import (
	"context"
	"database/sql"

	"github.com/jedrzej-grabski/lock-box/internal/lockbox/domain"
)

type roomsRepo struct {
	db dbtx
}

const roomColumns = `id, owner_id, name, description, created_at, updated_at`

func (r *roomsRepo) CreateRoom(ctx context.Context, room domain.DataRoom) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO data_rooms (id, owner_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		room.ID, room.OwnerID, room.Name, room.Description, room.CreatedAt, room.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *roomsRepo) GetRoomByID(ctx context.Context, id string) (domain.DataRoom, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM data_rooms WHERE id = ?`, id)
	return scanRoom(row)
}

func (r *roomsRepo) ListAllRooms(ctx context.Context) ([]domain.DataRoom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roomColumns+` FROM data_rooms ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectRooms(rows)
}

func (r *roomsRepo) ListRoomsOwnedBy(ctx context.Context, ownerID string) ([]domain.DataRoom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roomColumns+` FROM data_rooms WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	return collectRooms(rows)
}

func (r *roomsRepo) ListRoomsSharedWith(ctx context.Context, userID string) ([]domain.DataRoom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dr.id, dr.owner_id, dr.name, dr.description, dr.created_at, dr.updated_at
		FROM data_rooms dr
		JOIN shares s ON s.data_room_id = dr.id
		WHERE s.user_id = ? AND s.revoked = 0
		ORDER BY dr.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return collectRooms(rows)
}

func (r *roomsRepo) DeleteRoom(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM data_rooms WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func scanRoom(row rowScanner) (domain.DataRoom, error) {
	var room domain.DataRoom
	err := row.Scan(&room.ID, &room.OwnerID, &room.Name, &room.Description, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return domain.DataRoom{}, mapNotFound(err)
	}
	return room, nil
}

func collectRooms(rows *sql.Rows) ([]domain.DataRoom, error) {
	defer rows.Close()
	var out []domain.DataRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}
