package alerts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/interfaces/alerts"
)

func TestLogSink_Send_NeverErrors(t *testing.T) {
	sink := alerts.NewLogSink()
	err := sink.Send(context.Background(), alerts.Alert{
		Severity: alerts.SeverityWarning,
		Message:  "high error rate",
		Fields:   map[string]any{"failed": 6, "processed": 10},
	})
	assert.NoError(t, err)
}

func TestWebhookSink_Send_Success(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := alerts.DefaultWebhookSinkConfig(server.URL)
	cfg.RequestsPerSecond = 100
	cfg.Burst = 10
	sink := alerts.NewWebhookSink(cfg)

	err := sink.Send(context.Background(), alerts.Alert{Severity: alerts.SeverityWarning, Message: "test"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWebhookSink_Send_TripsBreakerAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := alerts.DefaultWebhookSinkConfig(server.URL)
	cfg.RequestsPerSecond = 100
	cfg.Burst = 10
	cfg.ConsecutiveFailsToTrip = 2
	sink := alerts.NewWebhookSink(cfg)

	for i := 0; i < 2; i++ {
		err := sink.Send(context.Background(), alerts.Alert{Severity: alerts.SeverityError, Message: "boom"})
		assert.Error(t, err)
	}

	// Breaker should now be open; a third call fails fast without hitting the server.
	err := sink.Send(context.Background(), alerts.Alert{Severity: alerts.SeverityError, Message: "boom"})
	assert.Error(t, err)
}
