package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/partyd/internal/api"
	"github.com/charlesng35/partyd/internal/app"
	"github.com/charlesng35/partyd/internal/app/maintenance"
	iauth "github.com/charlesng35/partyd/internal/auth"
	"github.com/charlesng35/partyd/internal/database"
	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/messages"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/presence"
	"github.com/charlesng35/partyd/internal/realtime"
	"github.com/charlesng35/partyd/internal/services"
	"github.com/charlesng35/partyd/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Registry *party.Registry
	Ledger   *invitations.Ledger
	Presence *presence.Directory
	Hub      *realtime.Hub
	Parties  *services.PartyService
	JWT      *iauth.JWTService
	Jobs     *monitoring.JobTracker
	Sweeper  *maintenance.Sweeper
	Router   *gin.Engine

	stopAudit context.CancelFunc
}

// presenceEvent is the payload published on the presence stream.
type presenceEvent struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// bootstrapRuntime initialises the audit store, the party core, the realtime hub, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background())
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	if cfg.Audit.Enabled {
		stack.DB, err = initialiseDatabase(cfg.Audit.DriverConfig())
		if err != nil {
			return nil, err
		}

		stack.Audit, err = services.NewAuditService(stack.DB, services.WithAuditBufferSize(cfg.Audit.BufferSize))
		if err != nil {
			return nil, fmt.Errorf("initialise audit service: %w", err)
		}
		// The writer outlives the signal context so requests drained during shutdown are still recorded.
		auditCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stack.stopAudit = cancel
		stack.Audit.Start(auditCtx)
	}

	catalog, err := messages.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}

	stack.Registry = party.NewRegistry()
	stack.Ledger = invitations.NewLedger()
	stack.Presence = presence.NewDirectory()
	stack.Hub = newPresenceHub(stack.Presence, log)

	opts := []services.PartyServiceOption{
		services.WithNotifier(realtime.NewNotifier(stack.Hub, catalog, cfg.Party.Locale)),
		services.WithPresence(stack.Presence),
	}
	if stack.Audit != nil {
		opts = append(opts, services.WithAuditRecorder(stack.Audit))
	}
	stack.Parties, err = services.NewPartyService(stack.Registry, stack.Ledger, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise party service: %w", err)
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Sweeper = maintenance.NewSweeper(stack.Ledger, stack.Audit,
		maintenance.WithJobTracker(stack.Jobs),
		maintenance.WithSweepSchedule(cfg.Party.SweepSchedule),
		maintenance.WithAuditSchedule(cfg.Audit.CleanupSchedule),
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
	)
	if err := stack.Sweeper.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Parties:        stack.Parties,
		Registry:       stack.Registry,
		Ledger:         stack.Ledger,
		Hub:            stack.Hub,
		JWT:            stack.JWT,
		Audit:          stack.Audit,
		DB:             stack.DB,
		Jobs:           stack.Jobs,
		MetricsEnabled: cfg.Monitoring.Prometheus.Enabled,
		MetricsPath:    cfg.Monitoring.Prometheus.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// newPresenceHub builds the realtime hub and keeps the presence directory in step with its
// connections. Disconnecting never touches party membership.
func newPresenceHub(dir *presence.Directory, log *zap.Logger) *realtime.Hub {
	var hub *realtime.Hub
	publish := func(event string, client realtime.Client) {
		log.Debug("presence changed", zap.String("event", event), logger.Player(client.ID))
		hub.BroadcastStream(realtime.StreamPresence, realtime.Message{
			Event: event,
			Data:  presenceEvent{PlayerID: client.ID, Name: client.Name},
		})
	}

	hub = realtime.NewHub(
		realtime.WithConnectHook(func(client realtime.Client) {
			if dir.Connect(party.PlayerID(client.ID), client.Name) {
				publish(realtime.EventOnline, client)
			}
		}),
		realtime.WithDisconnectHook(func(client realtime.Client) {
			if dir.Disconnect(party.PlayerID(client.ID)) {
				publish(realtime.EventOffline, client)
			}
		}),
	)
	return hub
}

// Shutdown stops background jobs and releases resources. Queued audit entries are
// flushed before the database closes.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Sweeper != nil {
		stopCtx := s.Sweeper.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		if _, err := s.Sweeper.RunOnce(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("final maintenance run: %w", err))
		}
	}

	if s.Audit != nil {
		errs = multierr.Append(errs, s.Audit.Close())
	}
	if s.stopAudit != nil {
		s.stopAudit()
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errs
}

func initialiseDatabase(cfg database.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Driver))))

	return db, nil
}
