package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownProductName is shown for lines whose product no longer exists.
const UnknownProductName = "Unknown Product"

// View is the read-only projection of an order returned to API callers.
type View struct {
	ID           int64
	CustomerID   int64
	CustomerName string
	OrderDate    time.Time
	Items        []ItemView
	TotalAmount  decimal.Decimal
}

// ItemView is one projected order line.
type ItemView struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Project builds the view of a stored order. Prices always come from the
// stored lines, never from current quotations.
func Project(rec Record) View {
	v := View{
		ID:           rec.Order.ID,
		CustomerID:   rec.Order.CustomerID,
		CustomerName: rec.CustomerName,
		OrderDate:    rec.Order.OrderDate,
		Items:        make([]ItemView, len(rec.Order.Items)),
		TotalAmount:  decimal.Zero,
	}

	for i, it := range rec.Order.Items {
		name, ok := rec.ProductNames[it.ProductID]
		if !ok {
			name = UnknownProductName
		}
		total := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))

		v.Items[i] = ItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  total,
		}
		v.TotalAmount = v.TotalAmount.Add(total)
	}

	return v
}
