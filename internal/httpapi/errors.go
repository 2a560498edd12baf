package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"aigated/internal/gateway"
	"aigated/internal/keys"
	"aigated/internal/manager"
	"aigated/pkg/types"
)

// runtimeMismatchError signals a slot whose runtime does not serve the
// requested operation. This indicates a registry misconfiguration.
type runtimeMismatchError struct{ capability string }

func (e runtimeMismatchError) Error() string {
	return "loaded runtime does not serve " + e.capability
}

func (e runtimeMismatchError) StatusCode() int { return http.StatusNotImplemented }

func errRuntimeMismatch(capability string) error {
	return runtimeMismatchError{capability: capability}
}

// HTTPError allows backends to carry an HTTP status code on an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSON writes any payload with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

// writeError maps pipeline errors to status codes. Responses carry the
// error text as-is; typed errors never embed internal state.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case keys.IsAuthError(err):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case keys.IsPermissionDenied(err):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case keys.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case keys.IsDuplicate(err):
		writeJSONError(w, http.StatusConflict, err.Error())
	case gateway.IsRateLimited(err):
		retry := int(gateway.RetryAfter(err).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		IncrementBackpressure("rate_limit")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case manager.IsModelNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsTooBusy(err):
		IncrementBackpressure("queue_full")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case manager.IsWaitTimeout(err):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	case manager.IsModelUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
