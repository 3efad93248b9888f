package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword pgtype.Text
	FirstName      string
	LastName       string
	Role           string
	IsActive       bool
	CreatedBy      pgtype.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Location struct {
	ID        uuid.UUID
	Name      string
	Address   string
	City      string
	State     string
	Phone     pgtype.Text
	CreatedAt time.Time
}

type Category struct {
	ID           uuid.UUID
	LocationID   uuid.UUID
	Name         string
	DisplayOrder int32
	CreatedAt    time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	LocationID  uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
	ImageURL    pgtype.Text
	CreatedAt   time.Time
}

type Order struct {
	ID          uuid.UUID
	LocationID  uuid.UUID
	OrderNumber string
	OrderDate   time.Time
	TotalAmount pgtype.Numeric
	ProcessedBy pgtype.UUID
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
	Notes      pgtype.Text
}

// OrderItemDetail is an order item joined with its menu item name.
type OrderItemDetail struct {
	OrderItem
	MenuItemName string
}

// OrderSummary is an order row joined with its location name, used by
// history listings.
type OrderSummary struct {
	Order
	LocationName string
}
