package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/gadgethub-api/internal/domain/auth"
	"github.com/xenking/gadgethub-api/internal/domain/customer"
	"github.com/xenking/gadgethub-api/internal/domain/distributor"
	"github.com/xenking/gadgethub-api/internal/domain/order"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int
	Message string
	Errors  []string
}

func (r *errorResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(r.Code)
	e.FieldStart("message")
	e.Str(r.Message)
	if len(r.Errors) > 0 {
		e.FieldStart("errors")
		e.ArrStart()
		for _, msg := range r.Errors {
			e.Str(msg)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

var errInvalidID = errors.New("invalid id")

// writeError maps domain errors to HTTP status codes. Unknown errors are
// logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := mapError(err)
	if resp.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, resp.Code, resp.Encode)
}

func mapError(err error) *errorResponse {
	var (
		vErr   *validationError
		ovErr  *order.ValidationError
		pnfErr *order.ProductNotFoundError
		npErr  *order.NoPricingError
		ipErr  *order.InvalidPriceError
	)

	switch {
	case errors.As(err, &vErr):
		return &errorResponse{Code: http.StatusBadRequest, Message: vErr.Error(), Errors: vErr.messages}
	case errors.As(err, &ovErr):
		msgs := make([]string, len(ovErr.Errors))
		for i, e := range ovErr.Errors {
			msgs[i] = e.Error()
		}
		return &errorResponse{Code: http.StatusBadRequest, Message: ovErr.Error(), Errors: msgs}
	case errors.Is(err, errMalformedBody):
		return &errorResponse{Code: http.StatusBadRequest, Message: errMalformedBody.Error()}
	case errors.Is(err, errInvalidID),
		errors.Is(err, errIDMismatch),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrCustomerNotFound):
		return &errorResponse{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &pnfErr):
		return &errorResponse{Code: http.StatusBadRequest, Message: pnfErr.Error()}
	case errors.As(err, &npErr):
		return &errorResponse{Code: http.StatusBadRequest, Message: npErr.Error()}
	case errors.As(err, &ipErr):
		return &errorResponse{Code: http.StatusBadRequest, Message: ipErr.Error()}

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, errUnauthenticated):
		return &errorResponse{Code: http.StatusUnauthorized, Message: rootMessage(err)}
	case errors.Is(err, errForbidden):
		return &errorResponse{Code: http.StatusForbidden, Message: err.Error()}

	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, customer.ErrInUse),
		errors.Is(err, distributor.ErrInUse):
		return &errorResponse{Code: http.StatusConflict, Message: rootMessage(err)}

	case errors.Is(err, order.ErrNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: order.ErrNotFound.Error()}
	case errors.Is(err, product.ErrNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: product.ErrNotFound.Error()}
	case errors.Is(err, customer.ErrNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: customer.ErrNotFound.Error()}
	case errors.Is(err, distributor.ErrNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: distributor.ErrNotFound.Error()}
	case errors.Is(err, quotation.ErrNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: quotation.ErrNotFound.Error()}
	case errors.Is(err, auth.ErrUserNotFound):
		return &errorResponse{Code: http.StatusNotFound, Message: auth.ErrUserNotFound.Error()}
	}

	return &errorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
}

// rootMessage strips wrapping context so credential and conflict errors are
// reported identically whatever path produced them.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		auth.ErrInvalidCredentials,
		auth.ErrInvalidToken,
		auth.ErrUserExists,
		customer.ErrInUse,
		distributor.ErrInUse,
		errUnauthenticated,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
