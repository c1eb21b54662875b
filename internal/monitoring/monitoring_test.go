package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/partyd/internal/database"
	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/monitoring/checks"
	"github.com/charlesng35/partyd/internal/party"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(0)
	manager.RegisterLiveness(monitoring.NewCheck("parties", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Len(t, live.Checks, 1)

	ready := manager.EvaluateReadiness(context.Background())
	require.False(t, ready.Success)
	require.Equal(t, monitoring.StatusDown, ready.Status)
	require.Len(t, ready.Checks, 2)
	require.Equal(t, "database", ready.Checks[1].Component)
}

func TestHealthManagerTimesOutAndRecoversPanics(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.RegisterLiveness(monitoring.NewCheck("stuck", func(ctx context.Context) monitoring.ProbeResult {
		<-block
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterLiveness(monitoring.NewCheck("broken", func(ctx context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	manager.RegisterLiveness(monitoring.NewCheck("unnamed-status", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{}
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[0].Status)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
	require.Contains(t, report.Checks[1].Details, "boom")
	require.Equal(t, monitoring.StatusDown, report.Checks[2].Status)
}

func TestJobTrackerAndMaintenanceCheck(t *testing.T) {
	t.Parallel()

	tracker := monitoring.NewJobTracker()
	tracker.Register("invitation_sweep")

	check := checks.Maintenance(tracker, time.Hour)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "pending first run")

	tracker.RecordRun("invitation_sweep", nil, time.Millisecond)
	tracker.RecordRun("audit_retention", errors.New("database is locked"), time.Millisecond)

	jobs := tracker.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "audit_retention", jobs[0].Job)
	require.Equal(t, uint64(1), jobs[0].ConsecutiveFailures)
	require.Equal(t, "success", jobs[1].LastStatus)

	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "database is locked")

	tracker.RecordRun("audit_retention", nil, time.Millisecond)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)
}

func TestDatabaseAndPartiesChecks(t *testing.T) {
	t.Parallel()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)

	probe := checks.Database(db)
	require.Equal(t, monitoring.StatusUp, probe.Run(context.Background()).Status)

	require.NoError(t, database.Close(db))
	require.Equal(t, monitoring.StatusDown, probe.Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDown, checks.Database(nil).Run(context.Background()).Status)

	registry := party.NewRegistry()
	_, err = registry.Create("p-1")
	require.NoError(t, err)
	result := checks.Parties(registry, invitations.NewLedger()).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "1 parties, 0 invitations", result.Details)
}
