package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/pkg/logger"
)

// Recomputer is the part of the recompute controller the admin API triggers
type Recomputer interface {
	RunTrailing(ctx context.Context, now time.Time) (*contracts.RunSummary, error)
	RunFullRollup(ctx context.Context) (*contracts.RunSummary, error)
}

// AdminHandler triggers recompute runs behind a shared secret
type AdminHandler struct {
	recomputer Recomputer
	secret     string
	logger     *logger.Logger
}

// NewAdminHandler creates a new admin handler. An empty secret disables it.
func NewAdminHandler(recomputer Recomputer, secret string, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		recomputer: recomputer,
		secret:     secret,
		logger:     log,
	}
}

// RecomputeResponse is returned by the admin trigger
type RecomputeResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message,omitempty"`
	Summary *contracts.RunSummary `json:"summary,omitempty"`
}

// Recompute runs the trailing-window recompute, or a full rollup with ?mode=rollup
// POST /admin/recompute?secret=
func (h *AdminHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		respondError(w, http.StatusForbidden, "admin endpoint disabled")
		return
	}

	secret := r.URL.Query().Get("secret")
	if secret == "" {
		secret = r.Header.Get("X-Update-Secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		h.logger.WithField("remote", r.RemoteAddr).Warn("Rejected recompute trigger")
		respondError(w, http.StatusUnauthorized, "invalid secret")
		return
	}

	var (
		summary *contracts.RunSummary
		err     error
	)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "window":
		summary, err = h.recomputer.RunTrailing(r.Context(), time.Now())
	case "rollup":
		summary, err = h.recomputer.RunFullRollup(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "mode must be window or rollup")
		return
	}

	if err != nil {
		h.logger.WithError(err).Error("Recompute trigger failed")
		respondJSON(w, http.StatusInternalServerError, RecomputeResponse{
			Status:  "error",
			Message: err.Error(),
			Summary: summary,
		})
		return
	}

	respondJSON(w, http.StatusOK, RecomputeResponse{
		Status:  "success",
		Message: "Summary tables updated",
		Summary: summary,
	})
}
