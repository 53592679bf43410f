// Package validate checks request payloads before anything touches
// storage. Requests wrap their payload under a top-level "data" key,
// mirroring the response envelope.
package validate

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/apperr"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// DecodeData unwraps the "data" envelope from the request body and
// unmarshals the payload into dst. Missing envelope or malformed JSON
// is a validation error on the "data" field.
func DecodeData(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperr.New(apperr.ValidationError, "cannot read request body").OnField("data")
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apperr.New(apperr.ValidationError, "invalid JSON").OnField("data")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperr.New(apperr.ValidationError, "This field is required.").OnField("data")
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return apperr.New(apperr.ValidationError, "invalid payload").OnField("data")
	}
	return nil
}

// Required reports a validation error when a decoded pointer field is
// absent from the payload.
func Required(field string, v any) error {
	missing := false
	switch t := v.(type) {
	case *int64:
		missing = t == nil
	case *decimal.Decimal:
		missing = t == nil
	case *string:
		missing = t == nil
	default:
		missing = v == nil
	}
	if missing {
		return apperr.New(apperr.ValidationError, "This field is required.").OnField(field)
	}
	return nil
}

// Amount enforces the fixed-point contract: at most 2 fractional
// digits, within the NUMERIC(12,2) storage range.
func Amount(field string, d decimal.Decimal) error {
	if d.Exponent() < -2 {
		return apperr.New(apperr.ValidationError, "must have at most 2 decimal places").OnField(field)
	}
	limit := decimal.New(1, 10) // 10^10, one past NUMERIC(12,2)
	if d.Abs().GreaterThanOrEqual(limit) {
		return apperr.New(apperr.ValidationError, "amount out of range").OnField(field)
	}
	return nil
}
