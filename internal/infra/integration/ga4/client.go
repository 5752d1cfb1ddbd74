// Package ga4 envia eventos server-side pelo Measurement Protocol do GA4.
package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type payload struct {
	ClientID string  `json:"client_id"`
	Events   []event `json:"events"`
}

type Client struct {
	measurementID string
	apiSecret     string
	endpoint      string
	http          *http.Client
	now           func() time.Time
	logger        *zap.Logger
}

func NewClient(measurementID, apiSecret, endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		endpoint:      endpoint,
		http:          &http.Client{Timeout: timeout},
		now:           time.Now,
		logger:        logger.Named("ga4"),
	}
}

func (c *Client) Enabled() bool {
	return c.measurementID != "" && c.apiSecret != ""
}

// RecordEvent posts one event. Without credentials it is a no-op.
func (c *Client) RecordEvent(ctx context.Context, name string, params map[string]any, clientID string) error {
	if !c.Enabled() {
		c.logger.Debug("analytics disabled, dropping event", zap.String("event", name))
		return nil
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	merged := map[string]any{
		"engagement_time_msec": "1",
		"session_id":           c.now().UnixMilli(),
	}
	for k, v := range params {
		merged[k] = v
	}

	body, err := json.Marshal(payload{ClientID: clientID, Events: []event{{Name: name, Params: merged}}})
	if err != nil {
		return fmt.Errorf("ga4: encode %s: %w", name, err)
	}

	q := url.Values{}
	q.Set("measurement_id", c.measurementID)
	q.Set("api_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ga4: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ga4 %s: %w", name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ga4 %s: status %d", name, resp.StatusCode)
	}
	return nil
}

var _ usecase.AnalyticsSink = (*Client)(nil)
