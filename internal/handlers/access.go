package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/protect"
	"github.com/hwainwright/gatefold/internal/services"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// AccessValidator defines the validation operation the handler depends on
type AccessValidator interface {
	Validate(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error)
}

// AccessHandler serves the reader-facing validation endpoint
type AccessHandler struct {
	service  AccessValidator
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(service AccessValidator, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// ValidateAccessRequest is the viewer's link-open payload. The fingerprint
// components are collected client-side and hashed server-side.
type ValidateAccessRequest struct {
	Token       string `json:"token" validate:"required,min=16,max=128"`
	Fingerprint struct {
		UserAgent        string `json:"user_agent" validate:"required,max=512"`
		ScreenResolution string `json:"screen_resolution" validate:"required,max=32"`
		Timezone         string `json:"timezone" validate:"max=64"`
		Locale           string `json:"locale" validate:"max=32"`
		CanvasSignature  string `json:"canvas_signature" validate:"max=128"`
	} `json:"fingerprint" validate:"required"`
}

// ValidateAccessResponse is the grant payload. Denials never use this shape;
// they go through the error response with only the reader-facing message.
type ValidateAccessResponse struct {
	Granted       bool                   `json:"granted"`
	Grant         *models.Grant          `json:"grant"`
	SessionToken  string                 `json:"session_token"`
	WatermarkPlan *protect.WatermarkPlan `json:"watermark_plan"`
}

// Validate handles POST /api/v1/access/validate
func (h *AccessHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	fingerprint := models.DeviceFingerprint{
		UserAgent:        req.Fingerprint.UserAgent,
		ScreenResolution: req.Fingerprint.ScreenResolution,
		Timezone:         req.Fingerprint.Timezone,
		Locale:           req.Fingerprint.Locale,
		CanvasSignature:  req.Fingerprint.CanvasSignature,
	}

	result, err := h.service.Validate(r.Context(), req.Token, fingerprint, ip)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "incomplete device fingerprint")
			return
		}
		h.logger.ErrorContext(r.Context(), "validation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to validate access")
		return
	}

	if !result.Decision.Granted {
		// One shape for every denial; the reason taxonomy stays internal
		pkghttp.WriteError(w, http.StatusForbidden, "access_denied", result.Decision.Reason.ReaderMessage())
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ValidateAccessResponse{
		Granted:       true,
		Grant:         result.Decision.Grant,
		SessionToken:  result.SessionToken,
		WatermarkPlan: result.WatermarkPlan,
	})
}
