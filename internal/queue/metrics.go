package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики протокола task queue.
var (
	metricTasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cl_queue_tasks_created_total",
		Help: "Execution tasks published as claimable",
	})

	metricTasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cl_queue_tasks_claimed_total",
		Help: "Successful task claims, including re-claims after lease expiry",
	})

	metricMutationsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_queue_mutations_accepted_total",
		Help: "Accepted protocol mutations by operation",
	}, []string{"op"})

	metricMutationsStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cl_queue_mutations_stale_total",
		Help: "Mutations ignored as stale sequence replays by operation",
	}, []string{"op"})

	metricInvalidTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cl_queue_invalid_transitions_total",
		Help: "Status transitions rejected by the transition table",
	})
)
