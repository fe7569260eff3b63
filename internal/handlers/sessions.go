package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hwainwright/gatefold/internal/services"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// SessionLister reports recorded sessions with read-time liveness
type SessionLister interface {
	ListSessions(ctx context.Context) ([]*services.SessionStatus, error)
}

// OpsSessionHandler serves the operator view of viewing sessions
type OpsSessionHandler struct {
	service SessionLister
	logger  *slog.Logger
}

// NewOpsSessionHandler creates a new OpsSessionHandler
func NewOpsSessionHandler(service SessionLister, logger *slog.Logger) *OpsSessionHandler {
	return &OpsSessionHandler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /api/v1/ops/sessions
func (h *OpsSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session listing failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list sessions")
		return
	}

	live := 0
	for _, s := range sessions {
		if s.Live {
			live++
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
		"live":     live,
	})
}
