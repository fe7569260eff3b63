package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/models"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

// KeyRevoker disables an operator key by its public id half
type KeyRevoker interface {
	Revoke(ctx context.Context, id string) error
}

// OperatorKeyHandler manages operator API keys over HTTP
type OperatorKeyHandler struct {
	keys   KeyRevoker
	logger *slog.Logger
}

// NewOperatorKeyHandler creates a new OperatorKeyHandler
func NewOperatorKeyHandler(keys KeyRevoker, logger *slog.Logger) *OperatorKeyHandler {
	return &OperatorKeyHandler{
		keys:   keys,
		logger: logger,
	}
}

// Revoke handles DELETE /api/v1/ops/keys/{id}
func (h *OperatorKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "missing key id")
		return
	}

	// A key cannot revoke itself; locking out the last operator must take a
	// second key
	if operatorID, ok := auth.OperatorIDFromContext(r.Context()); ok && operatorID == id {
		pkghttp.WriteBadRequest(w, "a key cannot revoke itself")
		return
	}

	if err := h.keys.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "operator key not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "operator key revocation failed",
			slog.String("key_id", id),
			slog.Any("error", err),
		)
		pkghttp.WriteInternalError(w, "failed to revoke operator key")
		return
	}

	h.logger.InfoContext(r.Context(), "operator key revoked", slog.String("key_id", id))

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"key_id":  id,
		"revoked": true,
	})
}
