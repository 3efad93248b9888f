package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/franchise-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID = errors.New("invalid menu_item_id")
	ErrLocationNotFound  = errors.New("location not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *store.Queries (and its WithTx variant).
type OrderStore interface {
	GetLocation(ctx context.Context, id uuid.UUID) (store.Location, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (store.MenuItem, error)
	GetNextOrderNumber(ctx context.Context, locationID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx). This
// lets the service bind store instances to transactions.
type NewOrderStore func(db store.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
// ProcessedBy is Nil for anonymous orders.
type CreateOrderRequest struct {
	LocationID  uuid.UUID
	ProcessedBy uuid.UUID
	Items       []CreateOrderItemRequest
}

type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderResult is the created order with its item rows.
type CreateOrderResult struct {
	Order store.Order
	Items []store.OrderItem
}

// OrderService creates orders: validates the referenced menu items,
// snapshots their prices, and computes the total server-side. Client
// supplied totals are never trusted.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedItem holds a prepared order item with its price snapshot.
type processedItem struct {
	params store.CreateOrderItemParams
}

// CreateOrder validates, snapshots prices, and creates an order
// atomically. Retries on order_number unique constraint violations
// (concurrent transactions can read the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_location_id_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	st := s.newStore(tx)

	if _, err := st.GetLocation(ctx, req.LocationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	nextNum, err := st.GetNextOrderNumber(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%05d", nextNum)

	// Process items: validate each menu item and snapshot its price.
	totalAmount := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		menuItem, err := st.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		// The snapshot keeps historical totals stable across later
		// menu price changes.
		price := NumericToDecimal(menuItem.Price)
		totalAmount = totalAmount.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}

		items = append(items, processedItem{
			params: store.CreateOrderItemParams{
				MenuItemID: menuItemID,
				Quantity:   item.Quantity,
				Price:      DecimalToNumeric(price),
				Notes:      notes,
			},
		})
	}

	processedBy := pgtype.UUID{}
	if req.ProcessedBy != uuid.Nil {
		processedBy = pgtype.UUID{Bytes: req.ProcessedBy, Valid: true}
	}

	order, err := st.CreateOrder(ctx, store.CreateOrderParams{
		LocationID:  req.LocationID,
		OrderNumber: orderNumber,
		TotalAmount: DecimalToNumeric(totalAmount),
		ProcessedBy: processedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemRows []store.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		row, err := st.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemRows = append(itemRows, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemRows}, nil
}
