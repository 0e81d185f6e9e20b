package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/gadgethub-api/internal/domain/customer"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

// Sentinel errors for order operations.
var (
	ErrNotFound         = errors.New("order not found")
	ErrEmptyItems       = errors.New("order must contain at least one item")
	ErrCustomerNotFound = errors.New("customer not found")
)

// MaxQuantity is the largest quantity a single line can carry.
const MaxQuantity = math.MaxInt32

// InvalidQuantityError indicates a line with a quantity outside
// 1..MaxQuantity.
type InvalidQuantityError struct {
	Line      int
	ProductID int64
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	if e.Quantity > MaxQuantity {
		return fmt.Sprintf("quantity must be at most %d (line %d, product %d, got %d)", MaxQuantity, e.Line+1, e.ProductID, e.Quantity)
	}
	return fmt.Sprintf("quantity must be greater than 0 (line %d, product %d, got %d)", e.Line+1, e.ProductID, e.Quantity)
}

// ValidationError aggregates every invalid line of a request.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ProductID)
}

// NoPricingError indicates a product without any quotation.
type NoPricingError struct {
	ProductID   int64
	ProductName string
}

func (e *NoPricingError) Error() string {
	return fmt.Sprintf("no quotations available for product %s: cannot create order without pricing information", e.ProductName)
}

// InvalidPriceError indicates the latest quotation of a product has a
// non-positive price.
type InvalidPriceError struct {
	ProductID   int64
	ProductName string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid or missing price for product %s", e.ProductName)
}

// LineRequest is one requested order line.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	CustomerID int64
	Items      []LineRequest
}

// CustomerFinder looks up customers by ID.
type CustomerFinder interface {
	GetByID(ctx context.Context, id int64) (*customer.Customer, error)
}

// ProductFinder fetches a batch of products.
type ProductFinder interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}

// QuotationFinder fetches the quotations of a batch of products.
type QuotationFinder interface {
	ListByProducts(ctx context.Context, productIDs []int64) ([]quotation.Quotation, error)
}

// Options configures optional Service dependencies.
type Options struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// Now overrides the clock used for order dates.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Service encapsulates order pricing and retrieval.
type Service struct {
	customers  CustomerFinder
	products   ProductFinder
	quotations QuotationFinder
	orders     Repository

	now     func() time.Time
	tracer  trace.Tracer
	created metric.Int64Counter
	lines   metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	customers CustomerFinder,
	products ProductFinder,
	quotations QuotationFinder,
	orders Repository,
	opts Options,
) (*Service, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("github.com/xenking/gadgethub-api/internal/domain/order")
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Number of orders created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	lines, err := meter.Int64Counter("order.lines",
		metric.WithDescription("Number of order lines created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order.lines counter")
	}

	return &Service{
		customers:  customers,
		products:   products,
		quotations: quotations,
		orders:     orders,
		now:        opts.Now,
		tracer:     opts.TracerProvider.Tracer("github.com/xenking/gadgethub-api/internal/domain/order"),
		created:    created,
		lines:      lines,
	}, nil
}

// Create validates the request against one snapshot of products and
// quotations, freezes the latest quotation price on every line, persists the
// order atomically and returns the projection of the stored order.
//
// No write happens unless every check passes.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(
			attribute.Int64("order.customer_id", req.CustomerID),
			attribute.Int("order.lines", len(req.Items)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect distinct product IDs.
	var invalid []error
	ids := make([]int64, 0, len(req.Items))
	seen := make(map[int64]struct{}, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			invalid = append(invalid, &InvalidQuantityError{Line: i, ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Errors: invalid}
	}

	if _, err := s.customers.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, errors.Wrap(err, "get customer")
	}

	// Single snapshot reused for validation and for the prices written.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	quotes, err := s.quotations.ListByProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get quotations")
	}

	productMap := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}
	quotesByProduct := quotation.GroupByProduct(quotes)

	items := make([]Item, len(req.Items))
	for i, line := range req.Items {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		latest, ok := quotation.Latest(quotesByProduct[p.ID])
		if !ok {
			return nil, &NoPricingError{ProductID: p.ID, ProductName: p.Name}
		}
		if !latest.PricePerUnit.IsPositive() {
			return nil, &InvalidPriceError{ProductID: p.ID, ProductName: p.Name}
		}
		items[i] = Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: latest.PricePerUnit,
		}
	}

	o := &Order{
		CustomerID: req.CustomerID,
		OrderDate:  s.now().UTC().Truncate(time.Microsecond),
		Items:      items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.Int64("order.id", o.ID))
	s.created.Add(ctx, 1)
	s.lines.Add(ctx, int64(len(items)))

	return s.Get(ctx, o.ID)
}

// Get returns the projection of a stored order.
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	rec, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	v := Project(*rec)
	return &v, nil
}

// List returns projections of all stored orders.
func (s *Service) List(ctx context.Context) ([]View, error) {
	recs, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	views := make([]View, len(recs))
	for i, rec := range recs {
		views[i] = Project(rec)
	}
	return views, nil
}

// Delete removes an order together with its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "delete order %d", id)
	}
	return nil
}
