package plunk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

var ErrNotConfigured = errors.New("plunk: api key not configured")

// APIError é uma resposta não-2xx da API do Plunk.
type APIError struct {
	Status  int
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plunk %s: status %d: %s", e.Path, e.Status, e.Message)
}

type Client struct {
	apiKey    string
	baseURL   string
	sequences map[string]string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient monta o cliente. sequences mapeia nomes de sequência da política
// para IDs de automação; nomes sem mapeamento são usados como ID.
func NewClient(apiKey, baseURL string, timeout time.Duration, sequences map[string]string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sequences: sequences,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.Named("plunk"),
	}
}

func (c *Client) UpsertContact(ctx context.Context, id entity.Identity, fields map[string]any) error {
	return c.post(ctx, "/contacts", contactRequest{
		Email:      id.String(),
		Subscribed: true,
		Data:       fields,
	})
}

func (c *Client) EnrollInSequence(ctx context.Context, id entity.Identity, sequenceID string) error {
	automation := sequenceID
	if mapped, ok := c.sequences[sequenceID]; ok && mapped != "" {
		automation = mapped
	}
	path := "/automations/" + url.PathEscape(automation) + "/subscribers"
	return c.post(ctx, path, subscriberRequest{Email: id.String()})
}

func (c *Client) SendTransactional(ctx context.Context, id entity.Identity, templateID string, data map[string]any) error {
	return c.post(ctx, "/send", sendRequest{
		To:       id.String(),
		Template: templateID,
		Data:     data,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("plunk: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("plunk: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("plunk %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("request ok", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode, Path: path, Message: strings.TrimSpace(string(raw))}
	var decoded errorResponse
	if json.Unmarshal(raw, &decoded) == nil {
		if decoded.Message != "" {
			apiErr.Message = decoded.Message
		} else if decoded.Error != "" {
			apiErr.Message = decoded.Error
		}
	}
	return apiErr
}

var _ usecase.EmailProvider = (*Client)(nil)
