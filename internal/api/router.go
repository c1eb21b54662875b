package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/partyd/internal/auth"
	"github.com/charlesng35/partyd/internal/handlers"
	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/middleware"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/realtime"
	"github.com/charlesng35/partyd/internal/services"
)

// Dependencies bundles everything the HTTP surface is built from. Audit, DB and Jobs are
// optional; the history route and the matching health probes are skipped without them.
type Dependencies struct {
	Parties  *services.PartyService
	Registry *party.Registry
	Ledger   *invitations.Ledger
	Hub      *realtime.Hub
	JWT      *iauth.JWTService
	Audit    *services.AuditService
	DB       *gorm.DB
	Jobs     *monitoring.JobTracker

	// MetricsEnabled exposes the Prometheus scrape endpoint at MetricsPath (default /metrics).
	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter builds the Gin engine, wires middleware and registers the routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Parties == nil {
		return nil, fmt.Errorf("party service must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, deps)

	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT, realtime.StreamParty, realtime.StreamPresence)
	r.GET("/ws", realtimeHandler.Stream)
	r.GET("/ws/:stream", realtimeHandler.Stream)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))
	registerPartyRoutes(api, deps)

	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
