package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const locationColumns = `id, name, address, city, state, phone, created_at`

func scanLocation(row pgx.Row) (Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.State, &l.Phone, &l.CreatedAt)
	return l, err
}

func (q *Queries) GetLocation(ctx context.Context, id uuid.UUID) (Location, error) {
	return scanLocation(q.db.QueryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
}

// ListLocations returns locations, restricted to the given ids when
// non-nil (nil means no restriction, the super admin scope).
func (q *Queries) ListLocations(ctx context.Context, ids []uuid.UUID) ([]Location, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE $1::uuid[] IS NULL OR id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.State, &l.Phone, &l.CreatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

type CreateLocationParams struct {
	Name    string
	Address string
	City    string
	State   string
	Phone   pgtype.Text
}

func (q *Queries) CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error) {
	return scanLocation(q.db.QueryRow(ctx, `
		INSERT INTO locations (name, address, city, state, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+locationColumns,
		arg.Name, arg.Address, arg.City, arg.State, arg.Phone))
}

type UpdateLocationParams struct {
	ID      uuid.UUID
	Name    string
	Address string
	City    string
	State   string
	Phone   pgtype.Text
}

func (q *Queries) UpdateLocation(ctx context.Context, arg UpdateLocationParams) (Location, error) {
	return scanLocation(q.db.QueryRow(ctx, `
		UPDATE locations
		SET name = $2, address = $3, city = $4, state = $5, phone = $6
		WHERE id = $1
		RETURNING `+locationColumns,
		arg.ID, arg.Name, arg.Address, arg.City, arg.State, arg.Phone))
}

// DeleteLocation removes a location. Categories, menu items and orders
// owned by it go with it (FK ON DELETE CASCADE).
func (q *Queries) DeleteLocation(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx,
		`DELETE FROM locations WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
