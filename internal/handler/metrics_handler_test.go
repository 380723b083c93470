package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timegrid-api/internal/service"
)

func buildObservabilityRouter(metrics *service.MetricsService, checks map[string]ReadinessCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterObservability(router, NewMetricsHandler(metrics, checks))
	return router
}

func TestMetricsHandlerHealth(t *testing.T) {
	router := buildObservabilityRouter(nil, nil)
	w := performRequest(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsHandlerReady(t *testing.T) {
	router := buildObservabilityRouter(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	w := performRequest(router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"ok"}}`, w.Body.String())

	router = buildObservabilityRouter(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	w = performRequest(router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestMetricsHandlerPrometheusAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordMove("applied")
	metrics.RecordMove("MOVE_CONFLICT")
	metrics.SetActiveSessions(3)
	require.NoError(t, metrics.RegisterQueueDepth("exports", func() int { return 2 }))
	router := buildObservabilityRouter(metrics, nil)

	w := performRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "timetable_moves_total")
	assert.Contains(t, w.Body.String(), "timetable_sessions_active 3")
	assert.Contains(t, w.Body.String(), `job_queue_depth{queue="exports"} 2`)

	w = performRequest(router, http.MethodGet, "/metrics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.EqualValues(t, 3, body["active_sessions"])
	outcomes, ok := body["move_outcomes"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, outcomes["applied"])
}

func TestMetricsHandlerWithoutService(t *testing.T) {
	router := buildObservabilityRouter(nil, nil)
	w := performRequest(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
