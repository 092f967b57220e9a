package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/logging"
)

type APIError struct {
	StatusCode int            `json:"status_code"`
	Kind       string         `json:"kind"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status. Internal failures are logged and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := APIError{
		StatusCode: apperr.Status(kind),
		Kind:       string(kind),
		Message:    err.Error(),
		Timestamp:  time.Now().UTC(),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Details = ae.Details
	}
	log := logging.FromContext(r.Context(), nil)
	if kind == apperr.Internal {
		log.Error("request failed", zap.Error(err))
		body.Message, body.Details = "internal server error", nil
	} else {
		log.Info("request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, body.StatusCode, body)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", err)
}

func writeForbidden(w http.ResponseWriter, r *http.Request, err error) {
	writeAuthError(w, r, http.StatusForbidden, "FORBIDDEN", err)
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, kind string, err error) {
	logging.FromContext(r.Context(), nil).Info("request rejected", zap.String("kind", kind), zap.Error(err))
	writeJSON(w, status, APIError{
		StatusCode: status,
		Kind:       kind,
		Message:    err.Error(),
		Timestamp:  time.Now().UTC(),
	})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, err, "invalid json")
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.InvalidArgument, "invalid %s: %q", name, chi.URLParam(r, name))
	}
	return id, nil
}
