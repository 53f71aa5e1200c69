// Package respond writes the JSON envelope shared by every API endpoint:
// {"success":true,"data":...} or {"success":false,"error":{...}}.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
}

// JSON writes data with status inside a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// Error writes err as an error envelope. Errors without a domain code are
// logged and reported as a generic INTERNAL error.
func Error(w http.ResponseWriter, log logger.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("internal error", err)
	}

	switch appErr.Code {
	case apperr.CodeInternal:
		log.Error("internal error", logger.Error(err))
		appErr = apperr.Internal("internal error", nil)
	case apperr.CodeStoreUnavailable:
		log.Warn("store unavailable", logger.Error(err))
		w.Header().Set("Retry-After", "1")
	}

	write(w, appErr.HTTPStatus(), envelope{Success: false, Error: appErr})
}

// Decode reads a JSON body into v. Unknown fields and trailing data are
// rejected as VALIDATION errors.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is required")
		case errors.As(err, &tooLarge):
			return apperr.Validation("request body too large")
		default:
			return apperr.Validation("malformed JSON body").WithDetails(map[string]string{"body": err.Error()})
		}
	}
	if dec.More() {
		return apperr.Validation("request body must contain a single JSON object")
	}
	return nil
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
