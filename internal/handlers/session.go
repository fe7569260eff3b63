package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/protect"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// HeartbeatRecorder defines the session operation the handler depends on
type HeartbeatRecorder interface {
	Heartbeat(ctx context.Context, sessionID string, page int) error
}

// CaptureReporter defines the capture-event operation the handler depends on
type CaptureReporter interface {
	Report(ctx context.Context, sessionID, tokenString, subscriberID, eventType string, metrics *protect.WindowMetrics) (string, bool, error)
}

// SessionHandler serves the viewer's in-session endpoints, all gated on the
// session JWT minted at validation time
type SessionHandler struct {
	sessions HeartbeatRecorder
	capture  CaptureReporter
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions HeartbeatRecorder, capture CaptureReporter, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		capture:  capture,
		logger:   logger,
	}
}

type heartbeatRequest struct {
	Page int `json:"page" validate:"gte=0,lte=10000"`
}

// Heartbeat handles POST /api/v1/sessions/heartbeat
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "missing session token")
		return
	}

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.sessions.Heartbeat(r.Context(), claims.SessionID, req.Page); err != nil {
		if errors.Is(err, models.ErrSessionInvalidated) {
			// Terminal for this session; the viewer must re-validate the link
			pkghttp.WriteError(w, http.StatusUnauthorized, "session_invalidated", "This viewing session has ended.")
			return
		}
		h.logger.ErrorContext(r.Context(), "heartbeat failed",
			slog.String("session_id", claims.SessionID),
			slog.Any("error", err),
		)
		pkghttp.WriteInternalError(w, "failed to record heartbeat")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type captureEventRequest struct {
	EventType     string                 `json:"event_type" validate:"required,max=32"`
	WindowMetrics *protect.WindowMetrics `json:"window_metrics"`
}

type captureEventResponse struct {
	Warning  string `json:"warning"`
	Recorded bool   `json:"recorded"`
}

// Capture handles POST /api/v1/sessions/capture
func (h *SessionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "missing session token")
		return
	}

	var req captureEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	warning, recorded, err := h.capture.Report(r.Context(), claims.SessionID, claims.Token, claims.SubscriberID, req.EventType, req.WindowMetrics)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "unknown event type")
			return
		}
		h.logger.ErrorContext(r.Context(), "capture report failed",
			slog.String("session_id", claims.SessionID),
			slog.Any("error", err),
		)
		pkghttp.WriteInternalError(w, "failed to record event")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, captureEventResponse{
		Warning:  warning,
		Recorded: recorded,
	})
}
