package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/gadgethub-api/internal/domain/distributor"
)

type distributorRequest struct {
	ID           int64  `json:"distributorId"`
	Name         string `json:"name" validate:"required,max=200"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone" validate:"phone"`
	Address      string `json:"address" validate:"max=500"`
}

func (req *distributorRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "distributorId":
			req.ID, err = d.Int64()
		case "name":
			req.Name, err = decodeNullableStr(d)
		case "contactEmail":
			req.ContactEmail, err = decodeNullableStr(d)
		case "contactPhone":
			req.ContactPhone, err = decodeNullableStr(d)
		case "address":
			req.Address, err = decodeNullableStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
}

func (req *distributorRequest) model(id int64) *distributor.Distributor {
	return &distributor.Distributor{
		ID:           id,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
	}
}

func encodeDistributor(e *jx.Encoder, d *distributor.Distributor) {
	e.ObjStart()
	e.FieldStart("distributorId")
	e.Int64(d.ID)
	e.FieldStart("name")
	e.Str(d.Name)
	e.FieldStart("contactEmail")
	e.Str(d.ContactEmail)
	e.FieldStart("contactPhone")
	e.Str(d.ContactPhone)
	e.FieldStart("address")
	e.Str(d.Address)
	e.ObjEnd()
}

func (h *Handler) listDistributors(w http.ResponseWriter, r *http.Request) {
	list, err := h.distributors.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeArr(e, list, encodeDistributor) })
}

func (h *Handler) getDistributor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.distributors.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeDistributor(e, d) })
}

func (h *Handler) createDistributor(w http.ResponseWriter, r *http.Request) {
	var req distributorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	d := req.model(0)
	if err := h.distributors.Create(r.Context(), d); err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, d.ID, func(e *jx.Encoder) { encodeDistributor(e, d) })
}

func (h *Handler) updateDistributor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req distributorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkBodyID(id, req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	d := req.model(id)
	if err := h.distributors.Update(r.Context(), d); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeDistributor(e, d) })
}

func (h *Handler) deleteDistributor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.distributors.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
