// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 2 * time.Second

// Check pings one dependency.
type Check func(ctx context.Context) error

// Health reports the status of the process and its dependencies.
type Health struct {
	checks map[string]Check
}

// NewHealth creates a health handler. A nil map means no checks.
func NewHealth(checks map[string]Check) *Health {
	return &Health{checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP answers 200 when every check passes and 503 otherwise.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			slog.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	writeJSON(w, status, resp)
}
