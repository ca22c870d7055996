// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

// Package api contains the health check handlers for liveness and readiness probes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/memodeck/memodeck/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready
// endpoint. A nil checker is skipped, which keeps tests free of fakes.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func() error

	// CheckCache pings the Redis client.
	CheckCache func() error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. It reports only that the process is up.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

type dependencyCheck struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readiness handles GET /ready. A single failing dependency degrades the
// whole probe to 503 so the orchestrator stops routing traffic here.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	probes := []struct {
		name  string
		check func() error
	}{
		{"postgres", handler.dependencies.CheckDatabase},
		{"redis", handler.dependencies.CheckCache},
	}

	checks := make([]dependencyCheck, 0, len(probes))
	ready := true

	for _, probe := range probes {
		if probe.check == nil {
			continue
		}

		result := dependencyCheck{Name: probe.name, IsOK: true}
		if err := probe.check(); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			ready = false
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", probe.name),
				slog.Any("error", err),
			)
		}
		checks = append(checks, result)
	}

	status, httpStatus := "ready", http.StatusOK
	if !ready {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		"status": status,
		"checks": checks,
	}})
}
