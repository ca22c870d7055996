// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

// Package metrics exposes Prometheus instrumentation for the auth service.
//
// # Architecture
//
// A single [Registry] owns every collector and is wired once in main. HTTP
// traffic is observed by the middleware returned from [Registry.Middleware];
// domain-level counters (auth outcomes, session sweeps) are incremented by
// the owning components through narrow methods, never by reaching into
// collector internals.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles all Prometheus collectors for the service.
type Registry struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	authOutcomes  *prometheus.CounterVec
	sessionSweeps prometheus.Counter
	sweptSessions prometheus.Counter
}

// NewRegistry creates the collector set and registers it with a private
// Prometheus registry (plus the standard Go/process collectors).
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Registry{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memodeck_http_requests_total",
			Help: "HTTP requests processed, partitioned by method and status.",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memodeck_http_request_duration_seconds",
			Help:    "HTTP request latency distribution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memodeck_auth_operations_total",
			Help: "Auth operations by kind (register, login, refresh, revoke) and outcome.",
		}, []string{"operation", "outcome"}),
		sessionSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memodeck_session_sweeps_total",
			Help: "Completed expired-session sweep runs.",
		}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memodeck_session_swept_rows_total",
			Help: "Expired refresh-token rows removed by the sweeper.",
		}),
	}

	reg.MustRegister(m.httpRequests, m.httpLatency, m.authOutcomes, m.sessionSweeps, m.sweptSessions)
	return m
}

// Handler returns the /metrics scrape endpoint.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// # Domain Counters

// ObserveAuth records one auth operation outcome ("ok" or "error").
func (m *Registry) ObserveAuth(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveSweep records a completed sweep and the number of rows it removed.
func (m *Registry) ObserveSweep(removed int64) {
	m.sessionSweeps.Inc()
	m.sweptSessions.Add(float64(removed))
}

// # HTTP Instrumentation

type instrumentedWriter struct {
	http.ResponseWriter
	status int
}

func (w *instrumentedWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware observes every request's status and latency.
func (m *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		startTime := time.Now()
		wrapped := &instrumentedWriter{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(wrapped, request)

		m.httpRequests.WithLabelValues(request.Method, strconv.Itoa(wrapped.status)).Inc()
		m.httpLatency.WithLabelValues(request.Method).Observe(time.Since(startTime).Seconds())
	})
}
