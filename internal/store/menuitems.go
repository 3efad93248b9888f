package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, location_id, category_id, name, price, is_available, image_url, created_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.LocationID, &m.CategoryID, &m.Name, &m.Price,
		&m.IsAvailable, &m.ImageURL, &m.CreatedAt)
	return m, err
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id))
}

// ListMenuItems returns available menu items, scope-restricted when
// locationIDs is non-nil.
func (q *Queries) ListMenuItems(ctx context.Context, locationIDs []uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE is_available = true
		  AND ($1::uuid[] IS NULL OR location_id = ANY($1))
		ORDER BY created_at, id`, locationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.LocationID, &m.CategoryID, &m.Name, &m.Price,
			&m.IsAvailable, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type CreateMenuItemParams struct {
	LocationID  uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		INSERT INTO menu_items (location_id, category_id, name, price, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+menuItemColumns,
		arg.LocationID, arg.CategoryID, arg.Name, arg.Price, arg.ImageURL, arg.IsAvailable))
}

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	LocationID  uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET location_id = $2, category_id = $3, name = $4, price = $5, image_url = $6, is_available = $7
		WHERE id = $1
		RETURNING `+menuItemColumns,
		arg.ID, arg.LocationID, arg.CategoryID, arg.Name, arg.Price, arg.ImageURL, arg.IsAvailable))
}

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx,
		`DELETE FROM menu_items WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
