package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

// errMalformedBody wraps every request decoding failure.
var errMalformedBody = errors.New("malformed request body")

// decoder is implemented by request types that read themselves from JSON.
type decoder interface {
	Decode(d *jx.Decoder) error
}

func decodeBody(r *http.Request, v decoder) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	if err := v.Decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	return nil
}

// writeJSON encodes a response body with fn and writes it with status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// encodeArr writes items as a JSON array using enc for each element.
func encodeArr[T any](e *jx.Encoder, items []T, enc func(e *jx.Encoder, v *T)) {
	e.ArrStart()
	for i := range items {
		enc(e, &items[i])
	}
	e.ArrEnd()
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(n))
}

// decodeNullableStr reads a string, treating JSON null as empty.
func decodeNullableStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
