package quotation

import (
	"context"

	"github.com/go-faster/errors"
)

// Service exposes quotation lookups used by the API.
type Service struct {
	quotes Repository
}

// NewService creates a quotation Service.
func NewService(quotes Repository) *Service {
	return &Service{quotes: quotes}
}

// Latest returns the most recent quotation for a product. Repeated calls
// return the same quotation until a new one is written.
func (s *Service) Latest(ctx context.Context, productID int64) (*Quotation, error) {
	q, err := s.quotes.LatestByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "latest quotation for product %d", productID)
	}
	return q, nil
}

// ForProduct returns all quotations of a product. The order is unspecified.
func (s *Service) ForProduct(ctx context.Context, productID int64) ([]Quotation, error) {
	quotes, err := s.quotes.ListByProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "quotations for product %d", productID)
	}
	return quotes, nil
}
