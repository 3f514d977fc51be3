package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessAllHealthy(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("postgres", func(ctx context.Context) error { return nil })
	checker.RegisterNonCritical("kafka", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ready", report.Status)
	assert.Len(t, report.Checks, 2)
}

func TestReadinessCriticalFailure(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("postgres", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "unavailable", report.Status)
	require.Len(t, report.Checks, 1)
	assert.False(t, report.Checks[0].Healthy)
	assert.Equal(t, "connection refused", report.Checks[0].Error)
}

func TestReadinessNonCriticalFailureStaysReady(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("postgres", func(ctx context.Context) error { return nil })
	checker.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return errors.New("broker down")
	})

	report, ready := checker.Run(context.Background())

	assert.True(t, ready)
	assert.Equal(t, "ready", report.Status)
}

func TestLivenessAlwaysOK(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("postgres", func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckTimeout(t *testing.T) {
	checker := NewChecker(50 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	_, ready := checker.Run(context.Background())
	assert.False(t, ready)
}
