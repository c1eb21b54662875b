package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PartiesActive tracks parties currently registered.
	PartiesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partyd_parties_active",
			Help: "Number of registered parties",
		},
	)

	// PartyMembers tracks players currently indexed to a party.
	PartyMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partyd_party_members",
			Help: "Number of players that belong to a party",
		},
	)

	// InvitationsPending tracks invitations held by the ledger, expired or not.
	InvitationsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partyd_invitations_pending",
			Help: "Number of invitations held in the ledger",
		},
	)

	// InvitationsSwept counts expired invitations reclaimed by the sweeper.
	InvitationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partyd_invitations_swept_total",
			Help: "Total number of expired invitations removed by sweeps",
		},
	)

	// PartyOperations counts lifecycle protocol calls by operation and result (ok|error code).
	PartyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partyd_party_operations_total",
			Help: "Total number of party lifecycle operations",
		},
		[]string{"operation", "result"},
	)

	// MaintenanceRuns counts background job runs by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partyd_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// MaintenanceLastSuccess records the unix time of the last successful run per job.
	MaintenanceLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "partyd_maintenance_last_success_timestamp_seconds",
			Help: "Unix time of the last successful maintenance run",
		},
		[]string{"job"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partyd_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
