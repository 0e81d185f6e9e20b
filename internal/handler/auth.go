package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/gadgethub-api/internal/domain/auth"
)

type registerRequest struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	PhoneNumber     string `json:"phoneNumber" validate:"phone"`
}

func (req *registerRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "firstName":
			req.FirstName, err = decodeNullableStr(d)
		case "lastName":
			req.LastName, err = decodeNullableStr(d)
		case "email":
			req.Email, err = decodeNullableStr(d)
		case "password":
			req.Password, err = decodeNullableStr(d)
		case "confirmPassword":
			req.ConfirmPassword, err = decodeNullableStr(d)
		case "phoneNumber":
			req.PhoneNumber, err = decodeNullableStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "email":
			req.Email, err = decodeNullableStr(d)
		case "password":
			req.Password, err = decodeNullableStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
}

func encodeUser(e *jx.Encoder, u *auth.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("firstName")
	e.Str(u.FirstName)
	e.FieldStart("lastName")
	e.Str(u.LastName)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("phoneNumber")
	if u.PhoneNumber == "" {
		e.Null()
	} else {
		e.Str(u.PhoneNumber)
	}
	e.FieldStart("role")
	e.Str(u.Role)
	e.FieldStart("createdAt")
	encodeTime(e, u.CreatedAt)
	e.FieldStart("lastLoginAt")
	if u.LastLoginAt == nil {
		e.Null()
	} else {
		encodeTime(e, *u.LastLoginAt)
	}
	e.ObjEnd()
}

func encodeAuthResult(msg string, res *auth.Result) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.FieldStart("message")
		e.Str(msg)
		e.FieldStart("token")
		e.Str(res.Token)
		e.FieldStart("expiresAt")
		encodeTime(e, res.ExpiresAt)
		e.FieldStart("user")
		encodeUser(e, &res.User)
		e.ObjEnd()
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), auth.RegisterRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeAuthResult("Registration successful", res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeAuthResult("Login successful", res))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, errUnauthenticated)
		return
	}
	u, err := h.auth.CurrentUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}

// logout is stateless: tokens stay valid until they expire.
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Token is valid")
		e.FieldStart("isValid")
		e.Bool(true)
		if id != nil {
			e.FieldStart("userId")
			e.Int64(id.UserID)
			e.FieldStart("role")
			e.Str(id.Role)
		}
		e.ObjEnd()
	})
}
