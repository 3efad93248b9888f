package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, location_id, order_number, order_date, total_amount, processed_by`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.LocationID, &o.OrderNumber, &o.OrderDate, &o.TotalAmount, &o.ProcessedBy)
	return o, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetNextOrderNumber returns the next per-location order sequence
// value. Concurrent callers can race on it; order creation retries on
// the unique constraint.
func (q *Queries) GetNextOrderNumber(ctx context.Context, locationID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM '[0-9]+$') AS int)), 0) + 1
		FROM orders WHERE location_id = $1`, locationID).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	LocationID  uuid.UUID
	OrderNumber string
	TotalAmount pgtype.Numeric
	ProcessedBy pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		INSERT INTO orders (location_id, order_number, total_amount, processed_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		arg.LocationID, arg.OrderNumber, arg.TotalAmount, arg.ProcessedBy))
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, quantity, price, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_id, menu_item_id, quantity, price, notes`,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.Price, arg.Notes).
		Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.Price, &it.Notes)
	return it, err
}

// ListOrderItems returns the items of an order joined with the menu
// item names, insertion order preserved.
func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItemDetail, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price, oi.notes, mi.name
		FROM order_items oi
		JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemDetail
	for rows.Next() {
		var it OrderItemDetail
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity,
			&it.Price, &it.Notes, &it.MenuItemName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type ListOrdersParams struct {
	// ScopeLocationIDs restricts results to the caller's scope; nil
	// means unrestricted.
	ScopeLocationIDs []uuid.UUID
	// LocationID is an optional user-supplied filter within the scope.
	LocationID pgtype.UUID
	DateFrom   pgtype.Timestamptz
	DateTo     pgtype.Timestamptz
}

// ListOrders returns orders newest first, filtered by scope and the
// optional location/date filters.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]OrderSummary, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.id, o.location_id, o.order_number, o.order_date, o.total_amount, o.processed_by, l.name
		FROM orders o
		JOIN locations l ON l.id = o.location_id
		WHERE ($1::uuid[] IS NULL OR o.location_id = ANY($1))
		  AND ($2::uuid IS NULL OR o.location_id = $2)
		  AND ($3::timestamptz IS NULL OR o.order_date >= $3)
		  AND ($4::timestamptz IS NULL OR o.order_date <= $4)
		ORDER BY o.order_date DESC, o.id DESC`,
		arg.ScopeLocationIDs, arg.LocationID, arg.DateFrom, arg.DateTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []OrderSummary
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.LocationID, &o.OrderNumber, &o.OrderDate,
			&o.TotalAmount, &o.ProcessedBy, &o.LocationName); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
