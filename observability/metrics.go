package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	ParticipantsJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_participants_joined_total",
			Help: "Total successful joins",
		},
	)

	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_messages_posted_total",
			Help: "Total messages recorded",
		},
		[]string{"type"},
	)

	ParticipantsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_participants_evicted_total",
			Help: "Total participants removed by the sweeper",
		},
	)

	EvictionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_eviction_failures_total",
			Help: "Total per-participant failures during sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_relay_sweep_duration_seconds",
			Help:    "Duration of one eviction sweep",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	ActiveParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_participants_active",
			Help: "Participants currently registered",
		},
	)

	ProcessCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_process_cpu_percent",
			Help: "CPU usage of the relay process as sampled by gopsutil",
		},
	)

	ProcessRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_process_rss_bytes",
			Help: "Resident memory of the relay process",
		},
	)
)
