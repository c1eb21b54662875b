package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/services"
	"github.com/charlesng35/partyd/pkg/logger"
)

const (
	defaultAuditRetentionDays = 30
	defaultSweepSpec          = "@every 30s"
	defaultAuditSpec          = "@daily"

	// Job names reported to the JobTracker.
	JobInvitationSweep = "invitation_sweep"
	JobAuditRetention  = "audit_retention"
)

// Sweeper runs the periodic housekeeping jobs: purging expired invitations from the
// ledger and pruning audit rows past their retention window.
type Sweeper struct {
	invites   *invitations.Ledger
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int
	jobs      *monitoring.JobTracker

	sweepSchedule string
	auditSchedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used when logging sweep passes.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithJobTracker reports every job run to tracker.
func WithJobTracker(tracker *monitoring.JobTracker) Option {
	return func(s *Sweeper) {
		s.jobs = tracker
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithSweepSchedule overrides the cron specification for the invitation sweep.
func WithSweepSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.sweepSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper. A nil audit service skips the retention job.
func NewSweeper(invites *invitations.Ledger, audit *services.AuditService, opts ...Option) *Sweeper {
	s := &Sweeper{
		invites:       invites,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		sweepSchedule: defaultSweepSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("sweeper"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

// Start registers the jobs with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.invites != nil {
		if _, err := s.cron.AddFunc(s.sweepSchedule, func() {
			s.sweep()
		}); err != nil {
			return err
		}
		s.register(JobInvitationSweep)
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			if err := s.pruneAudit(context.Background()); err != nil {
				s.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		s.register(JobAuditRetention)
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially and returns how many invitations
// were swept. Used in tests and during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	swept := s.sweep()

	if s.audit != nil && s.retention > 0 {
		errs = multierr.Append(errs, s.pruneAudit(ctx))
	}

	return swept, errs
}

func (s *Sweeper) pruneAudit(ctx context.Context) error {
	start := time.Now()
	removed, err := s.audit.CleanupOlderThan(ctx, s.retention)
	s.record(JobAuditRetention, err, time.Since(start))
	if err == nil && removed > 0 {
		s.log.Info("audit logs pruned", zap.Int64("removed", removed), zap.Int("retention_days", s.retention))
	}
	return err
}

func (s *Sweeper) register(job string) {
	if s.jobs != nil {
		s.jobs.Register(job)
	}
}

func (s *Sweeper) record(job string, err error, duration time.Duration) {
	if s.jobs != nil {
		s.jobs.RecordRun(job, err, duration)
	}
}

func (s *Sweeper) sweep() int {
	if s.invites == nil {
		return 0
	}
	start := time.Now()
	removed := s.invites.SweepExpired()
	s.record(JobInvitationSweep, nil, time.Since(start))
	if removed > 0 {
		s.log.Debug("expired invitations swept",
			zap.Int("removed", removed),
			zap.Int("pending", s.invites.Len()),
			zap.Time("at", s.now()),
		)
	}
	return removed
}
