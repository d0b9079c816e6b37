package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"kwtrack/internal/config"
	"kwtrack/internal/models"
)

// Pinger checks backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health probes and configuration diagnostics.
type SystemHandler struct {
	cfg         *config.Config
	db          Pinger
	sharedCache bool
}

// NewSystemHandler creates a new API system handler. sharedCache reports
// whether the result cache has a remote tier.
func NewSystemHandler(cfg *config.Config, database Pinger, sharedCache bool) *SystemHandler {
	return &SystemHandler{cfg: cfg, db: database, sharedCache: sharedCache}
}

// Live reports that the process is serving requests.
func (h *SystemHandler) Live(c fiber.Ctx) error {
	return jsonSuccess(c, fiber.Map{"alive": true})
}

// Ready reports whether the database is reachable.
func (h *SystemHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "database unreachable")
	}
	return jsonSuccess(c, fiber.Map{"ready": true})
}

// ConfigCheck reports which configuration items are set. Values are never returned.
func (h *SystemHandler) ConfigCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := h.db.Ping(ctx); err != nil {
		database = "unreachable"
	}

	return jsonSuccess(c, models.ConfigCheckResponse{
		Env: h.cfg.Env,
		Settings: map[string]bool{
			"database_url":       h.cfg.DatabaseURL != "",
			"redis_url":          h.cfg.RedisURL != "",
			"oidc_issuer":        h.cfg.OIDCIssuer != "",
			"oidc_client_id":     h.cfg.OIDCClientID != "",
			"oidc_client_secret": h.cfg.OIDCClientSecret != "",
			"session_secret":     h.cfg.SessionSecret != "",
			"cors_origins":       h.cfg.CORSOrigins != "",
			"rollups_enabled":    h.cfg.EnableRollups,
		},
		Database:   database,
		SharedTier: h.sharedCache,
	})
}
