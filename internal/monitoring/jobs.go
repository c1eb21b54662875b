package monitoring

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlesng35/partyd/pkg/metrics"
)

// JobSummary describes the run history of one background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// JobTracker records background job runs for health probes and metrics.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*JobSummary
	now  func() time.Time
}

// NewJobTracker constructs an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*JobSummary), now: time.Now}
}

// Register makes a job known before its first run so probes can report it as pending.
func (t *JobTracker) Register(job string) {
	job = normalizeJob(job)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &JobSummary{Job: job}
	}
}

// RecordRun stores the outcome of one job run. A nil err counts as success.
func (t *JobTracker) RecordRun(job string, err error, duration time.Duration) {
	job = normalizeJob(job)
	if duration < 0 {
		duration = 0
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.jobs[job]
	if !ok {
		stats = &JobSummary{Job: job}
		t.jobs[job] = stats
	}

	now := t.now()
	stats.LastStatus = result
	stats.LastRunAt = now
	stats.LastDuration = duration
	stats.TotalRuns++
	if err != nil {
		stats.LastError = err.Error()
		stats.ConsecutiveFailures++
		return
	}
	stats.LastError = ""
	stats.ConsecutiveFailures = 0
	stats.LastSuccessAt = now
	metrics.MaintenanceLastSuccess.WithLabelValues(job).Set(float64(now.Unix()))
}

// Jobs returns a copy of every tracked job, sorted by name.
func (t *JobTracker) Jobs() []JobSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]JobSummary, 0, len(t.jobs))
	for _, stats := range t.jobs {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func normalizeJob(job string) string {
	job = strings.ToLower(strings.TrimSpace(job))
	if job == "" {
		return "unknown"
	}
	return job
}
