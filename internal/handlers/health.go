package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hwainwright/gatefold/internal/database"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service, database, and session-store health
type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.DB, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{
		"database":      "ok",
		"session_store": "ok",
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "database health check failed", slog.Any("error", err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := h.redis.Ping(r.Context()).Err(); err != nil {
		h.logger.ErrorContext(r.Context(), "session store health check failed", slog.Any("error", err))
		checks["session_store"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	pkghttp.WriteJSON(w, status, body)
}
