package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiln_jobs_started_total",
		Help: "Number of annealing jobs accepted.",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_jobs_finished_total",
		Help: "Number of annealing jobs finished, by terminal status.",
	}, []string{"status"})

	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiln_iterations_total",
		Help: "Total annealing iterations performed across all jobs.",
	})
)
