package quotation

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a quotation does not exist, or when a product
// has no quotations at all.
var ErrNotFound = errors.New("quotation not found")

// Quotation is a distributor's offered price, stock and lead time for a
// product. IDs are assigned by the store in insertion order, so a higher ID
// means a more recent quotation.
type Quotation struct {
	ID                    int64
	ProductID             int64
	DistributorID         int64
	PricePerUnit          decimal.Decimal
	Availability          int
	EstimatedDeliveryDays int
}

// Repository defines persistence operations for quotations.
type Repository interface {
	List(ctx context.Context) ([]Quotation, error)
	GetByID(ctx context.Context, id int64) (*Quotation, error)
	ListByProduct(ctx context.Context, productID int64) ([]Quotation, error)
	// ListByProducts returns every quotation of the given products in one
	// round trip.
	ListByProducts(ctx context.Context, productIDs []int64) ([]Quotation, error)
	// LatestByProduct returns the quotation with the highest ID for the
	// product, or ErrNotFound.
	LatestByProduct(ctx context.Context, productID int64) (*Quotation, error)
	Create(ctx context.Context, q *Quotation) error
	// Update overwrites every field of the quotation except its ID.
	Update(ctx context.Context, q *Quotation) error
	Delete(ctx context.Context, id int64) error
}

// Latest returns the quotation with the numerically highest ID. The second
// return value is false when quotes is empty.
func Latest(quotes []Quotation) (Quotation, bool) {
	if len(quotes) == 0 {
		return Quotation{}, false
	}
	latest := quotes[0]
	for _, q := range quotes[1:] {
		if q.ID > latest.ID {
			latest = q
		}
	}
	return latest, true
}

// GroupByProduct indexes quotations by product ID, preserving input order
// within each group.
func GroupByProduct(quotes []Quotation) map[int64][]Quotation {
	m := make(map[int64][]Quotation)
	for _, q := range quotes {
		m[q.ProductID] = append(m[q.ProductID], q)
	}
	return m
}
