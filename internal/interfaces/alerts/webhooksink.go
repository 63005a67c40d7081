package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// WebhookSink POSTs alerts as JSON to a configured URL. Dispatch is
// wrapped in a circuit breaker so a flapping destination trips open
// instead of being hammered, and throttled by a token-bucket limiter.
type WebhookSink struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// WebhookSinkConfig configures dispatch pacing and breaker trip
// thresholds.
type WebhookSinkConfig struct {
	URL                    string
	RequestsPerSecond      float64
	Burst                  int
	BreakerTimeout         time.Duration
	ConsecutiveFailsToTrip uint32
}

// DefaultWebhookSinkConfig returns conservative defaults suitable for an
// operational alert destination.
func DefaultWebhookSinkConfig(url string) WebhookSinkConfig {
	return WebhookSinkConfig{
		URL:                    url,
		RequestsPerSecond:      1,
		Burst:                  2,
		BreakerTimeout:         30 * time.Second,
		ConsecutiveFailsToTrip: 3,
	}
}

// NewWebhookSink creates a WebhookSink per cfg.
func NewWebhookSink(cfg WebhookSinkConfig) *WebhookSink {
	settings := gobreaker.Settings{
		Name:    "alert-webhook",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailsToTrip
		},
	}

	return &WebhookSink{
		url:     cfg.URL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

func (s *WebhookSink) Send(ctx context.Context, alert Alert) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("alert webhook rate limiter: %w", err)
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, alert)
	})
	if err != nil {
		return fmt.Errorf("alert webhook dispatch failed: %w", err)
	}

	return nil
}

func (s *WebhookSink) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	return nil
}
