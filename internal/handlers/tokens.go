package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/services"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// TokenManager defines the token operations the operator surface depends on
type TokenManager interface {
	Issue(ctx context.Context, documentID, subscriberID, subscriberName, subscriberNumber string, ttl time.Duration, maxAccess int) (*services.IssuedToken, error)
	AccessLinkQR(ctx context.Context, tokenString string, size int) ([]byte, error)
	Revoke(ctx context.Context, tokenString, reason string) error
	ListBySubscriber(ctx context.Context, subscriberID string, limit, offset int) ([]*models.AccessToken, error)
}

// SessionCloser closes every session recorded against a token
type SessionCloser interface {
	CloseForToken(ctx context.Context, tokenString string) error
}

// TokenHandler serves the operator token-management endpoints
type TokenHandler struct {
	service          TokenManager
	sessions         SessionCloser
	defaultTTL       time.Duration
	defaultMaxAccess int
	logger           *slog.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(service TokenManager, sessions SessionCloser, defaultTTL time.Duration, defaultMaxAccess int, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		service:          service,
		sessions:         sessions,
		defaultTTL:       defaultTTL,
		defaultMaxAccess: defaultMaxAccess,
		logger:           logger,
	}
}

// IssueTokenRequest is the publishing workflow's issuance payload
type IssueTokenRequest struct {
	DocumentID       string `json:"document_id" validate:"required,max=128"`
	SubscriberID     string `json:"subscriber_id" validate:"required,max=128"`
	SubscriberName   string `json:"subscriber_name" validate:"required,max=256"`
	SubscriberNumber string `json:"subscriber_number" validate:"required,max=64"`
	TTLHours         int    `json:"ttl_hours" validate:"gte=0,lte=720"`
	MaxAccessCount   int    `json:"max_access_count" validate:"gte=0,lte=100000"`
}

// Issue handles POST /api/v1/ops/tokens
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ttl := h.defaultTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	maxAccess := h.defaultMaxAccess
	if req.MaxAccessCount > 0 {
		maxAccess = req.MaxAccessCount
	}

	issued, err := h.service.Issue(r.Context(), req.DocumentID, req.SubscriberID, req.SubscriberName, req.SubscriberNumber, ttl, maxAccess)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "document not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "a token already exists for this subscriber and document")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "missing document or subscriber id")
		default:
			h.logger.ErrorContext(r.Context(), "token issuance failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "failed to issue token")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, issued)
}

// QR handles GET /api/v1/ops/tokens/{token}/qr
func (h *TokenHandler) QR(w http.ResponseWriter, r *http.Request) {
	tokenString := chi.URLParam(r, "token")

	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		if err := parseIntParam(raw, &size, 64, 1024); err != nil {
			pkghttp.WriteBadRequest(w, "invalid size parameter")
			return
		}
	}

	png, err := h.service.AccessLinkQR(r.Context(), tokenString, size)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "token not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "QR render failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type revokeTokenRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// Revoke handles DELETE /api/v1/ops/tokens/{token}. Open sessions against the
// token are closed in the same call.
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenString := chi.URLParam(r, "token")

	var req revokeTokenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "invalid request body")
			return
		}
	}

	if err := h.service.Revoke(r.Context(), tokenString, req.Reason); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "token not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "token revocation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to revoke token")
		return
	}

	if err := h.sessions.CloseForToken(r.Context(), tokenString); err != nil {
		// The revocation stands; heartbeats will still invalidate the sessions
		h.logger.ErrorContext(r.Context(), "failed to close sessions for revoked token", slog.Any("error", err))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// List handles GET /api/v1/ops/tokens?subscriber_id=
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	subscriberID := r.URL.Query().Get("subscriber_id")
	if subscriberID == "" {
		pkghttp.WriteBadRequest(w, "subscriber_id is required")
		return
	}

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

	tokens, err := h.service.ListBySubscriber(r.Context(), subscriberID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "token listing failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list tokens")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": tokens,
		"count":  len(tokens),
	})
}
