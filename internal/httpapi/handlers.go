package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/hub"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(code errs.Code) int {
	switch code {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.CapacityExceeded:
		return http.StatusServiceUnavailable
	case errs.InvalidOperation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	writeJSON(w, statusOf(code), struct {
		Code    errs.Code `json:"code"`
		Message string    `json:"message"`
	}{Code: code, Message: errs.Message(err)})
}

// SessionSnapshot serves the read-only view of one session.
func SessionSnapshot(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.ToUpper(chi.URLParam(r, "id"))
		rm, err := h.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v.Snapshot)
	}
}

func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
