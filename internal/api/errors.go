package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/policy"
	"github.com/nerrad567/edge-mining-core/internal/store"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeNotConfigured   = "not_configured"
	ErrCodeUnauthorized    = "unauthorised"
	ErrCodeForbidden       = "forbidden"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeAdapterFailed   = "adapter_failed"
	ErrCodeDataUnavailable = "data_unavailable"
	ErrCodeTimeout         = "timeout"
	ErrCodeNotSupported    = "not_supported"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// errorStatus maps an error from the registry, stores or adapters to an
// HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, adapter.ErrNotFound),
		errors.Is(err, store.ErrEnergySourceNotFound),
		errors.Is(err, store.ErrMinerNotFound),
		errors.Is(err, store.ErrRuleNotFound),
		errors.Is(err, store.ErrUnitNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, adapter.ErrInvalidPayload),
		errors.Is(err, adapter.ErrInvalidCategory),
		errors.Is(err, adapter.ErrUnsupportedAdapterType),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, policy.ErrInvalidCondition),
		errors.Is(err, policy.ErrUnknownOperator):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrIDConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, domain.ErrDataUnavailable),
		errors.Is(err, domain.ErrStaleData),
		errors.Is(err, domain.ErrNotConnected):
		return http.StatusServiceUnavailable, ErrCodeDataUnavailable
	case errors.Is(err, adapter.ErrUnresolvedDependency),
		errors.Is(err, adapter.ErrConstructionFailed),
		errors.Is(err, adapter.ErrRepository):
		return http.StatusBadGateway, ErrCodeAdapterFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeErr writes err with the status errorStatus picks. Internal errors
// are logged and their message hidden.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

// resultValue unwraps a registry result. An empty result is a 404 with
// code not_configured; a failed one goes through writeErr.
func resultValue[T any](s *Server, w http.ResponseWriter, r *http.Request, res adapter.Result[T], what string) (T, bool) {
	switch {
	case res.OK():
		return res.Value, true
	case res.IsEmpty():
		writeError(w, http.StatusNotFound, ErrCodeNotConfigured, "no "+what+" configured")
	default:
		s.writeErr(w, r, res.Err)
	}
	var zero T
	return zero, false
}
