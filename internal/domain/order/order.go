package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer's committed purchase. Items carry the unit price that
// was resolved when the order was created.
type Order struct {
	ID         int64
	CustomerID int64
	OrderDate  time.Time
	Items      []Item
}

// Item is a single priced line of an order.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Record is an order as read back from the store together with the names
// needed to project it. ProductNames holds only products that still exist.
type Record struct {
	Order        Order
	CustomerName string
	ProductNames map[int64]string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order and all of its items as one unit and assigns
	// the generated IDs back onto o.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id int64) error
}
