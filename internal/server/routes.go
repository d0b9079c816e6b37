package server

import (
	"context"
	"errors"
	"log"

	"kwtrack/internal/handlers"
	"kwtrack/internal/handlers/api"
	"kwtrack/internal/metrics"
	"kwtrack/internal/middleware"
)

// Deps are the backends the HTTP routes serve from.
type Deps struct {
	Projects     api.ProjectStore
	Observations api.ObservationReader
	Aggregator   api.Aggregator
	Database     api.Pinger
	SharedCache  bool
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	var verifier middleware.TokenVerifier

	if s.Cfg.IsOIDCEnabled() {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg)
		if err != nil {
			return err
		}
		verifier = authHandler.Verifier()

		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	} else if !s.Cfg.IsDev() {
		return errors.New("OIDC_ISSUER is required outside development")
	} else {
		log.Println("OIDC authentication is disabled; API requests run as anonymous")
	}

	authMiddleware := middleware.NewAuthMiddleware(verifier, !s.Cfg.IsOIDCEnabled())

	rankingHandler := api.NewRankingHandler(deps.Projects, deps.Observations, deps.Aggregator)
	reportHandler := api.NewReportHandler(deps.Aggregator)
	systemHandler := api.NewSystemHandler(s.Cfg, deps.Database, deps.SharedCache)

	// Probes and metrics are unauthenticated
	s.App.Get("/healthz", systemHandler.Live)
	s.App.Get("/readyz", systemHandler.Ready)
	s.App.Get("/metrics", metrics.Handler())

	apiGroup := s.App.Group("/api", authMiddleware.RequireAuth)
	apiGroup.Get("/config-check", systemHandler.ConfigCheck)

	projects := apiGroup.Group("/projects/:project")
	projects.Get("/keywords", rankingHandler.Keywords)
	projects.Get("/rankings", rankingHandler.Rankings)
	projects.Get("/aggregations", rankingHandler.Aggregations)
	projects.Post("/reports", reportHandler.Generate)
	projects.Post("/reports/refresh", reportHandler.Refresh)

	return nil
}
