package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal tracks executed actions per kind and outcome status
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_actions_total",
			Help: "Total number of executed wallet actions",
		},
		[]string{"action", "status"},
	)

	// WalletTasksTotal tracks per-wallet task completions per task and result
	WalletTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_wallet_tasks_total",
			Help: "Total number of completed per-wallet tasks",
		},
		[]string{"task", "result"},
	)

	// ProxyFailoversTotal tracks reserve proxy consumptions
	ProxyFailoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_proxy_failovers_total",
			Help: "Total number of proxy failovers",
		},
	)

	// ReserveProxies tracks remaining entries in the reserve proxy pool
	ReserveProxies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_reserve_proxies",
			Help: "Remaining entries in the reserve proxy pool",
		},
	)

	// PassDuration tracks wall-clock duration of full farming passes
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_pass_duration_seconds",
			Help:    "Duration of full farming passes in seconds",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
	)

	// WalletPoints tracks last known platform points per wallet
	WalletPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harvester_wallet_points",
			Help: "Last known platform points per wallet",
		},
		[]string{"wallet"},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
