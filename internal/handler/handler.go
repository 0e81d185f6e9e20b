package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/gadgethub-api/internal/domain/auth"
	"github.com/xenking/gadgethub-api/internal/domain/customer"
	"github.com/xenking/gadgethub-api/internal/domain/distributor"
	"github.com/xenking/gadgethub-api/internal/domain/order"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

// OrderService prices, stores and projects orders.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.View, error)
	Get(ctx context.Context, id int64) (*order.View, error)
	List(ctx context.Context) ([]order.View, error)
	Delete(ctx context.Context, id int64) error
}

// AuthService manages user credentials and bearer tokens.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	CurrentUser(ctx context.Context, id int64) (*auth.User, error)
	Authenticate(token string) (*auth.Identity, error)
}

// QuotationLookup resolves quotations by product.
type QuotationLookup interface {
	Latest(ctx context.Context, productID int64) (*quotation.Quotation, error)
	ForProduct(ctx context.Context, productID int64) ([]quotation.Quotation, error)
}

// Deps holds the domain dependencies of a Handler.
type Deps struct {
	Auth         AuthService
	Orders       OrderService
	Quotes       QuotationLookup
	Products     product.Repository
	Distributors distributor.Repository
	Customers    customer.Repository
	Quotations   quotation.Repository
}

// Handler serves the JSON API, delegating to the injected domain services
// and repositories.
type Handler struct {
	auth         AuthService
	orders       OrderService
	quotes       QuotationLookup
	products     product.Repository
	distributors distributor.Repository
	customers    customer.Repository
	quotations   quotation.Repository
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	return &Handler{
		auth:         deps.Auth,
		orders:       deps.Orders,
		quotes:       deps.Quotes,
		products:     deps.Products,
		distributors: deps.Distributors,
		customers:    deps.Customers,
		quotations:   deps.Quotations,
	}
}

// Routes returns the API router. Mount it under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	bearer := h.requireBearer
	admin := RequireRole(auth.AdminRole)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Get("/me", h.me)
			r.Post("/logout", h.logout)
			r.Get("/validate-token", h.validateToken)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Group(func(r chi.Router) {
			r.Use(bearer, admin)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
	})

	r.Route("/distributors", func(r chi.Router) {
		r.Get("/", h.listDistributors)
		r.Get("/{id}", h.getDistributor)
		r.Group(func(r chi.Router) {
			r.Use(bearer, admin)
			r.Post("/", h.createDistributor)
			r.Put("/{id}", h.updateDistributor)
			r.Delete("/{id}", h.deleteDistributor)
		})
	})

	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.listQuotations)
		r.Get("/{id}", h.getQuotation)
		r.Get("/product/{productId}", h.productQuotations)
		r.Get("/product/{productId}/latest", h.latestQuotation)
		r.Group(func(r chi.Router) {
			r.Use(bearer, admin)
			r.Post("/", h.createQuotation)
			r.Put("/{id}", h.updateQuotation)
			r.Delete("/{id}", h.deleteQuotation)
		})
	})

	r.Route("/customers", func(r chi.Router) {
		r.Use(bearer)
		r.Get("/", h.listCustomers)
		r.Get("/{id}", h.getCustomer)
		r.Post("/", h.createCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(bearer)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Post("/", h.createOrder)
		r.Delete("/{id}", h.deleteOrder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, (&errorResponse{Code: http.StatusNotFound, Message: "route not found"}).Encode)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, (&errorResponse{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}).Encode)
	})

	return r
}

var errIDMismatch = errors.New("id in path does not match id in body")

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrap(errInvalidID, name)
	}
	return id, nil
}

// checkBodyID rejects a body whose id disagrees with the path. A zero body id
// means the client omitted it.
func checkBodyID(pathID, bodyID int64) error {
	if bodyID != 0 && bodyID != pathID {
		return errIDMismatch
	}
	return nil
}

// writeCreated answers 201 with a Location header pointing at the new resource.
func writeCreated(w http.ResponseWriter, r *http.Request, id int64, enc func(*jx.Encoder)) {
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, enc)
}
