// Package health provides liveness and readiness probes for HTTP services.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes a single dependency.
type CheckFunc func(ctx context.Context) error

// Status describes the outcome of one registered check.
type Status struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Report is the readiness response body.
type Report struct {
	Status string   `json:"status"`
	Checks []Status `json:"checks"`
}

type check struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Checker runs registered dependency checks. A failing critical check makes
// the service not ready; non-critical failures are reported but do not flip
// readiness.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	timeout time.Duration
}

// NewChecker creates a checker. Each check gets at most timeout to complete.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Register adds a critical check. If it fails, readiness fails.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.add(name, true, fn)
}

// RegisterNonCritical adds a check that is reported but never fails readiness.
func (c *Checker) RegisterNonCritical(name string, fn CheckFunc) {
	c.add(name, false, fn)
}

func (c *Checker) add(name string, critical bool, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, critical: critical, fn: fn})
}

// Run executes all checks concurrently and returns the aggregate report.
func (c *Checker) Run(ctx context.Context) (Report, bool) {
	c.mu.RLock()
	checks := make([]check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	statuses := make([]Status, len(checks))
	var wg sync.WaitGroup
	for i, chk := range checks {
		wg.Add(1)
		go func(i int, chk check) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := chk.fn(checkCtx)
			status := Status{
				Name:     chk.name,
				Healthy:  err == nil,
				Critical: chk.critical,
				Duration: time.Since(start).String(),
			}
			if err != nil {
				status.Error = err.Error()
			}
			statuses[i] = status
		}(i, chk)
	}
	wg.Wait()

	ready := true
	for _, s := range statuses {
		if s.Critical && !s.Healthy {
			ready = false
		}
	}

	report := Report{Status: "ready", Checks: statuses}
	if !ready {
		report.Status = "unavailable"
	}
	return report, ready
}

// LivenessHandler reports that the process is running.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs all checks and returns 503 if any critical check
// fails.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ready := c.Run(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
