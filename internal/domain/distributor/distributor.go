package distributor

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested distributor does not exist.
	ErrNotFound = errors.New("distributor not found")
	// ErrInUse is returned when deleting a record that other rows still reference.
	ErrInUse = errors.New("distributor has quotations")
)

// Distributor is a supplier that publishes quotations for products.
type Distributor struct {
	ID           int64
	Name         string
	ContactEmail string
	ContactPhone string
	Address      string
}

// Repository defines persistence operations for distributors.
type Repository interface {
	List(ctx context.Context) ([]Distributor, error)
	GetByID(ctx context.Context, id int64) (*Distributor, error)
	Create(ctx context.Context, d *Distributor) error
	Update(ctx context.Context, d *Distributor) error
	Delete(ctx context.Context, id int64) error
}
