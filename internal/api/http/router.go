package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/one-system/case-service/internal/api/http/handlers"
	"github.com/one-system/case-service/internal/auth"
	"github.com/one-system/case-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Cases          *handlers.CasesHandler
	Ingest         *handlers.IngestHandler
	SLA            *handlers.SLAHandler
	Summary        *handlers.SummaryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Fine-grained rules (who may apply which
// transition) live in the services; the router only gates whole endpoints.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	cases := api.Group("/cases")
	cases.Get("", cfg.Cases.List)
	cases.Post("", auth.RequireRole(domain.RoleDispatcher, domain.RoleAdmin), cfg.Cases.Create)
	cases.Get("/:id", cfg.Cases.Get)
	cases.Get("/:id/history", cfg.Cases.History)
	cases.Post("/:id/transition", cfg.Cases.Transition)
	cases.Post("/:id/assign", auth.RequireRole(domain.RoleDispatcher, domain.RoleAdmin), cfg.Cases.Assign)
	cases.Post("/:id/close-tier4", auth.RequireRole(domain.RoleAdmin), cfg.Cases.CloseTier4)

	ingest := api.Group("/ingest", auth.RequireRole(domain.RoleDispatcher, domain.RoleAdmin))
	ingest.Post("/batch", cfg.Ingest.IngestBatch)

	sla := api.Group("/sla")
	sla.Get("/configs", cfg.SLA.ListConfigs)
	sla.Put("/configs", auth.RequireRole(domain.RoleAdmin), cfg.SLA.UpdateConfig)
	sla.Post("/recompute", auth.RequireRole(domain.RoleAdmin), cfg.SLA.Recompute)

	summaries := api.Group("/summaries")
	summaries.Get("/daily", cfg.Summary.List)
	summaries.Post("/daily/refresh", auth.RequireRole(domain.RoleAdmin), cfg.Summary.Refresh)
}
