package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
)

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusFor maps an apperror kind to an HTTP status.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindDenied:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindInsufficientStock, apperror.KindInvalidState, apperror.KindEmptyCart:
		return http.StatusUnprocessableEntity
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperror.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error writes err using its apperror kind. Untyped errors are logged and hidden
// behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if e, ok := apperror.As(err); ok {
		if e.Kind == apperror.KindUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		Respond(w, status, map[string]interface{}{"error": e})
		return
	}
	logging.FromContext(r.Context()).Error("request_failed", zap.Error(err))
	Respond(w, status, map[string]string{"error": "internal error"})
}

// Decode reads a JSON body into dst.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Invalid("malformed request body: %v", err)
	}
	return nil
}

// URLUUID parses the named chi URL parameter as a UUID.
func URLUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Invalid("invalid %s %q", name, raw)
	}
	return id, nil
}

// ParseUUID parses an identifier supplied in a request body.
func ParseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Invalid("invalid %s %q", field, raw)
	}
	return id, nil
}

// Must is a guard for handlers: it reports whether err was nil and writes it otherwise.
func Must(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	Error(w, r, err)
	return false
}

var errNoIdentity = errors.New("no authenticated user")

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, reason error) {
	if reason == nil {
		reason = errNoIdentity
	}
	Respond(w, http.StatusUnauthorized, map[string]string{"error": fmt.Sprintf("unauthorized: %v", reason)})
}
