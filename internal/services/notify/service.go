// Package notify delivers cycle reports to a webhook endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/models"
)

// Service defines the interface for report delivery.
type Service interface {
	Send(ctx context.Context, cfg models.NotifyConfig, text string) (*models.NotifyResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
}

// New creates a new notification service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewWithClient creates a new notification service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient) *Impl {
	return &Impl{httpClient: httpClient, logger: logger}
}

// payload is the request body posted to the webhook endpoint.
type payload struct {
	Text string `json:"text"`
}

// Send posts the report text as JSON to the configured endpoint. Delivery
// failures are returned in the result, never as an error; the caller logs
// them and moves on.
func (s *Impl) Send(ctx context.Context, cfg models.NotifyConfig, text string) (*models.NotifyResult, error) {
	result := &models.NotifyResult{}

	s.logger.Info().
		Str("endpoint", cfg.Endpoint).
		Int("bytes", len(text)).
		Msg("sending report notification")

	jsonBody, err := json.Marshal(payload{Text: text})
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		result.Error = fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
		return result, nil
	}

	result.Sent = true
	s.logger.Info().Msg("report notification sent")

	return result, nil
}
