package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

type quotationRequest struct {
	ID                    int64           `json:"quotationId"`
	ProductID             int64           `json:"productId" validate:"gt=0"`
	DistributorID         int64           `json:"distributorId" validate:"gt=0"`
	PricePerUnit          decimal.Decimal `json:"pricePerUnit"`
	Availability          int             `json:"availability" validate:"gte=0,lte=2147483647"`
	EstimatedDeliveryDays int             `json:"estimatedDeliveryDays" validate:"gte=0,lte=2147483647"`
}

func (req *quotationRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "quotationId":
			req.ID, err = d.Int64()
		case "productId":
			req.ProductID, err = d.Int64()
		case "distributorId":
			req.DistributorID, err = d.Int64()
		case "pricePerUnit":
			req.PricePerUnit, err = decodeDecimal(d)
		case "availability":
			req.Availability, err = d.Int()
		case "estimatedDeliveryDays":
			req.EstimatedDeliveryDays, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
}

// validate checks the struct tags and the price, which the validator cannot
// inspect on a decimal.
func (req *quotationRequest) validate() error {
	err := validateStruct(req)
	if req.PricePerUnit.IsPositive() {
		return err
	}

	const msg = "pricePerUnit must be greater than 0"
	var vErr *validationError
	switch {
	case err == nil:
		return &validationError{messages: []string{msg}}
	case errors.As(err, &vErr):
		vErr.messages = append(vErr.messages, msg)
		return vErr
	default:
		return err
	}
}

func (req *quotationRequest) model(id int64) *quotation.Quotation {
	return &quotation.Quotation{
		ID:                    id,
		ProductID:             req.ProductID,
		DistributorID:         req.DistributorID,
		PricePerUnit:          req.PricePerUnit,
		Availability:          req.Availability,
		EstimatedDeliveryDays: req.EstimatedDeliveryDays,
	}
}

func encodeQuotation(e *jx.Encoder, q *quotation.Quotation) {
	e.ObjStart()
	e.FieldStart("quotationId")
	e.Int64(q.ID)
	e.FieldStart("productId")
	e.Int64(q.ProductID)
	e.FieldStart("distributorId")
	e.Int64(q.DistributorID)
	e.FieldStart("pricePerUnit")
	encodeMoney(e, q.PricePerUnit)
	e.FieldStart("availability")
	e.Int(q.Availability)
	e.FieldStart("estimatedDeliveryDays")
	e.Int(q.EstimatedDeliveryDays)
	e.ObjEnd()
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	list, err := h.quotations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeArr(e, list, encodeQuotation) })
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuotation(e, q) })
}

func (h *Handler) productQuotations(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.quotes.ForProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeArr(e, list, encodeQuotation) })
}

func (h *Handler) latestQuotation(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Latest(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuotation(e, q) })
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	q := req.model(0)
	if err := h.quotations.Create(r.Context(), q); err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, q.ID, func(e *jx.Encoder) { encodeQuotation(e, q) })
}

func (h *Handler) updateQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req quotationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkBodyID(id, req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	q := req.model(id)
	if err := h.quotations.Update(r.Context(), q); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuotation(e, q) })
}

func (h *Handler) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.quotations.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
