package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `id, location_id, name, display_order, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.LocationID, &c.Name, &c.DisplayOrder, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

// ListCategories returns categories ordered by display_order, then by
// insertion order. locationIDs of nil means no scope restriction.
func (q *Queries) ListCategories(ctx context.Context, locationIDs []uuid.UUID) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE $1::uuid[] IS NULL OR location_id = ANY($1)
		ORDER BY display_order, created_at, id`, locationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.LocationID, &c.Name, &c.DisplayOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type CreateCategoryParams struct {
	LocationID   uuid.UUID
	Name         string
	DisplayOrder int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, `
		INSERT INTO categories (location_id, name, display_order)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns,
		arg.LocationID, arg.Name, arg.DisplayOrder))
}

type UpdateCategoryParams struct {
	ID           uuid.UUID
	LocationID   uuid.UUID
	Name         string
	DisplayOrder int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, `
		UPDATE categories
		SET location_id = $2, name = $3, display_order = $4
		WHERE id = $1
		RETURNING `+categoryColumns,
		arg.ID, arg.LocationID, arg.Name, arg.DisplayOrder))
}

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx,
		`DELETE FROM categories WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
