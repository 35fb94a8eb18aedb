// Package respond writes JSON responses and maps engine errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/ledger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Decode reads a single JSON object from the request body into v. The body is capped at
// maxBodyBytes and unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("empty body")
		case errors.As(err, &tooLarge):
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Fail writes an error body with an explicit status and code.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, api.Error{Code: code, Message: message})
}

// BadRequest reports a body or parameter that could not be decoded.
func BadRequest(w http.ResponseWriter, err error) {
	Fail(w, http.StatusBadRequest, string(ledger.CodeValidation), err.Error())
}

// TooManyRequests reports a rate-limited caller.
func TooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	Fail(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later")
}

// Error maps err to a status by its ledger kind. Only ledger errors expose their
// message; anything else is reported as an internal error and logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var le *ledger.Error
	if !errors.As(err, &le) {
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		Fail(w, http.StatusInternalServerError, string(ledger.CodeInternal), ledger.ErrInternal.Message)
		return
	}

	status := Status(le.Kind)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", le.Code, "error", err)
	}
	message := le.Message
	if le.Kind == ledger.KindFatal {
		message = ledger.ErrInternal.Message
	}
	Fail(w, status, string(le.Code), message)
}

// Status returns the HTTP status for an error kind.
func Status(kind ledger.Kind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindVerification:
		return http.StatusUnprocessableEntity
	case ledger.KindConflict:
		return http.StatusConflict
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
