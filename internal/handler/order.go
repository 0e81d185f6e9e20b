package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/gadgethub-api/internal/domain/order"
)

// createOrderRequest checks ids and quantities of every line together. An
// empty item list is reported by the order service.
type createOrderRequest struct {
	CustomerID int64              `json:"customerId" validate:"gt=0"`
	Items      []orderItemRequest `json:"orderItems" validate:"dive"`
}

type orderItemRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0,lte=2147483647"`
}

func (req *createOrderRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "customerId":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "customerId")
			}
			req.CustomerID = v
			return nil
		case "orderItems":
			if d.Next() == jx.Null {
				return d.Null()
			}
			if err := d.Arr(func(d *jx.Decoder) error {
				var item orderItemRequest
				if err := item.Decode(d); err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			}); err != nil {
				return errors.Wrap(err, "orderItems")
			}
			return nil
		default:
			return d.Skip()
		}
	})
}

func (item *orderItemRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			item.ProductID, err = d.Int64()
		case "quantity":
			item.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
}

func encodeOrderItem(e *jx.Encoder, it *order.ItemView) {
	e.ObjStart()
	e.FieldStart("orderItemId")
	e.Int64(it.ID)
	e.FieldStart("productId")
	e.Int64(it.ProductID)
	e.FieldStart("productName")
	e.Str(it.ProductName)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unitPrice")
	encodeMoney(e, it.UnitPrice)
	e.FieldStart("totalPrice")
	encodeMoney(e, it.TotalPrice)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, v *order.View) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Int64(v.ID)
	e.FieldStart("customerId")
	e.Int64(v.CustomerID)
	e.FieldStart("orderDate")
	encodeTime(e, v.OrderDate)
	e.FieldStart("customerName")
	e.Str(v.CustomerName)
	e.FieldStart("orderItems")
	encodeArr(e, v.Items, encodeOrderItem)
	e.FieldStart("totalAmount")
	encodeMoney(e, v.TotalAmount)
	e.ObjEnd()
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeArr(e, views, encodeOrder) })
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, v) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	lines := make([]order.LineRequest, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	v, err := h.orders.Create(r.Context(), order.CreateRequest{
		CustomerID: req.CustomerID,
		Items:      lines,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, v.ID, func(e *jx.Encoder) { encodeOrder(e, v) })
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
