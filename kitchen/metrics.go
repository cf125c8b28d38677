package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_runs_started_total",
		Help: "Recipe runs successfully dispatched to the engine.",
	})
	admissionDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_admission_denied_total",
		Help: "Run starts denied by the per-user quota.",
	})
	authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_auth_failures_total",
		Help: "Requests rejected as unauthorized.",
	})
	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_validation_failures_total",
		Help: "Run starts rejected by parameter validation.",
	})
)
