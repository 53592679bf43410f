// Package httpx writes the API's response envelopes: every success body
// sits under a top-level "data" key, every failure under "errors" keyed
// by the offending field.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okuznetsov/balance-service/internal/apperr"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Errors map[string][]string `json:"errors"`
}

func WriteData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: v})
}

func WriteErrors(w http.ResponseWriter, status int, fields map[string][]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Errors: fields})
}

func WriteFieldErrors(w http.ResponseWriter, status int, field, msg string) {
	WriteErrors(w, status, map[string][]string{field: {msg}})
}

// WriteError renders a domain error. Unknown error types are masked as
// an internal error; the caller is expected to have logged them.
func WriteError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		field := e.Field
		if field == "" {
			field = "detail"
		}
		WriteFieldErrors(w, e.HTTPStatus(), field, e.Message)
		return
	}
	WriteFieldErrors(w, http.StatusInternalServerError, "detail", "internal error")
}
