package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_workers_ticks_total",
		Help: "Worker tick executions by worker id.",
	}, []string{"worker"})

	metricRunsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cl_workers_runs_repaired_total",
		Help: "Run records brought back in sync with their task by the poller.",
	})

	metricRetriesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cl_workers_retries_queued_total",
		Help: "Retry tasks created by the retry worker.",
	})

	metricIncidentsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_workers_incidents_raised_total",
		Help: "Incidents raised by the incident worker, by type.",
	}, []string{"type"})
)
