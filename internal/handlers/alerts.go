package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/models"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// AlertManager defines the alert operations the operator surface depends on
type AlertManager interface {
	ListUnresolved(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error)
	ListByToken(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error)
	Resolve(ctx context.Context, id uuid.UUID, operatorID, action string) error
}

// AlertHandler serves the operator alert-review endpoints
type AlertHandler struct {
	service AlertManager
	logger  *slog.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(service AlertManager, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /api/v1/ops/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")

	limit, offset := 50, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if err := parseIntParam(raw, &limit, 1, 200); err != nil {
			pkghttp.WriteBadRequest(w, "invalid limit parameter")
			return
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if err := parseIntParam(raw, &offset, 0, 1000000); err != nil {
			pkghttp.WriteBadRequest(w, "invalid offset parameter")
			return
		}
	}

	var (
		alerts []*models.SuspiciousAlert
		err    error
	)
	if tokenString := r.URL.Query().Get("token"); tokenString != "" {
		alerts, err = h.service.ListByToken(r.Context(), tokenString, limit, offset)
	} else {
		alerts, err = h.service.ListUnresolved(r.Context(), severity, limit, offset)
	}
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "invalid severity filter")
			return
		}
		h.logger.ErrorContext(r.Context(), "alert listing failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list alerts")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type resolveAlertRequest struct {
	Action string `json:"action" validate:"required,max=512"`
}

// Resolve handles POST /api/v1/ops/alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid alert id")
		return
	}

	var req resolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	operatorID, _ := auth.OperatorIDFromContext(r.Context())

	if err := h.service.Resolve(r.Context(), id, operatorID, req.Action); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "alert resolution failed",
			slog.String("alert_id", id.String()),
			slog.Any("error", err),
		)
		pkghttp.WriteInternalError(w, "failed to resolve alert")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
