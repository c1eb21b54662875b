package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/partyd/internal/handlers"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/monitoring/checks"
)

// The audit retention job runs daily, so anything fresher than a day and a bit is healthy.
const maintenanceMaxAge = 26 * time.Hour

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	manager := monitoring.NewHealthManager(0)
	manager.RegisterLiveness(checks.Parties(deps.Registry, deps.Ledger))
	if deps.DB != nil {
		manager.RegisterReadiness(checks.Database(deps.DB))
	}
	if deps.Jobs != nil {
		manager.RegisterReadiness(checks.Maintenance(deps.Jobs, maintenanceMaxAge))
	}

	health := handlers.NewHealthHandler(manager)
	r.GET("/health", health.Readiness)
	r.GET("/health/live", health.Liveness)
	r.GET("/api/health", health.Readiness)
}
