package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/partyd/internal/models"
	"github.com/charlesng35/partyd/pkg/logger"
)

const defaultAuditBufferSize = 256

// AuditEntry captures a single party operation to persist.
type AuditEntry struct {
	Action   string
	Actor    string
	Target   string
	PartyID  string
	Result   string
	Metadata map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	Actor   string
	Action  string
	Result  string
	PartyID string
	Since   *time.Time
	Until   *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves party audit log entries. Record enqueues entries
// for a background writer so callers never wait on the database.
type AuditService struct {
	db    *gorm.DB
	queue chan AuditEntry
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	now   func() time.Time
	log   *zap.Logger
}

// AuditOption customises the AuditService.
type AuditOption func(*AuditService)

// WithAuditBufferSize sets how many entries may wait for the writer before new ones are dropped.
func WithAuditBufferSize(size int) AuditOption {
	return func(s *AuditService) {
		if size > 0 {
			s.queue = make(chan AuditEntry, size)
		}
	}
}

// WithAuditClock overrides the clock used for retention cutoffs.
func WithAuditClock(now func() time.Time) AuditOption {
	return func(s *AuditService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB, opts ...AuditOption) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	svc := &AuditService{
		db:    db,
		queue: make(chan AuditEntry, defaultAuditBufferSize),
		stop:  make(chan struct{}),
		now:   time.Now,
		log:   logger.WithModule("audit"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Start launches the background writer. It stops when ctx is cancelled or Close is called,
// flushing whatever is already queued.
func (s *AuditService) Start(ctx context.Context) {
	ctx = ensureContext(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case entry := <-s.queue:
				s.write(ctx, entry)
			case <-ctx.Done():
				s.drain(context.Background())
				return
			case <-s.stop:
				s.drain(ctx)
				return
			}
		}
	}()
}

// Close stops the writer and waits for queued entries to be flushed.
func (s *AuditService) Close() error {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return nil
}

// Record enqueues entry without blocking. Entries are dropped when the buffer is full or
// the service has been closed.
func (s *AuditService) Record(entry AuditEntry) {
	select {
	case <-s.stop:
		return
	default:
	}

	select {
	case s.queue <- entry:
	default:
		s.log.Warn("audit buffer full, dropping entry", zap.String("action", entry.Action))
	}
}

// Log stores an audit entry synchronously, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	var payload datatypes.JSON
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	row := models.PartyAuditLog{
		Action:   strings.TrimSpace(entry.Action),
		Actor:    strings.TrimSpace(entry.Actor),
		Target:   strings.TrimSpace(entry.Target),
		PartyID:  strings.TrimSpace(entry.PartyID),
		Result:   strings.TrimSpace(entry.Result),
		Metadata: payload,
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns paginated audit logs ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.PartyAuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.PartyAuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.PartyAuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.PartyAuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *AuditService) write(ctx context.Context, entry AuditEntry) {
	if err := s.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) drain(ctx context.Context) {
	for {
		select {
		case entry := <-s.queue:
			s.write(ctx, entry)
		default:
			return
		}
	}
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.Actor != "" {
		query = query.Where("actor = ?", filters.Actor)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.PartyID != "" {
		query = query.Where("party_id = ?", filters.PartyID)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
