package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ignite/newsletter-backend/internal/pkg/logger"
	"github.com/ignite/newsletter-backend/internal/subscription"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	svc *subscription.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *subscription.Service) *Handlers {
	return &Handlers{svc: svc}
}

// emailRequest is the body of subscribe and unsubscribe requests.
type emailRequest struct {
	Email string `json:"email"`
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Subscribe handles POST /subscribe.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmailRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Subscribe(r.Context(), req.Email)
	if err != nil {
		logger.Error("subscribe failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}
	respondJSON(w, res.HTTPStatus, res)
}

// Unsubscribe handles POST /unsubscribe.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmailRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Unsubscribe(r.Context(), req.Email)
	if err != nil {
		logger.Error("unsubscribe failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Error processing unsubscribe request")
		return
	}
	respondJSON(w, res.HTTPStatus, res)
}

// Confirm handles GET /confirm?id=...&token=... — the link from the
// validation email. It resolves the record by id; the email address itself
// never appears in confirmation links.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	token := r.URL.Query().Get("token")

	res, err := h.svc.Confirm(r.Context(), id, token)
	if err != nil {
		logger.Error("confirm failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to retrieve subscriber information")
		return
	}
	respondJSON(w, res.HTTPStatus, res)
}

func decodeEmailRequest(w http.ResponseWriter, r *http.Request) (emailRequest, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return req, false
	}
	return req, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, subscription.Result{Success: false, Message: message})
}
