package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/telhawk-systems/logrelay/internal/health"
	"github.com/telhawk-systems/logrelay/internal/models"
	"github.com/telhawk-systems/logrelay/internal/stats"
)

// defaultTimeout covers two sink attempts on the server side.
const defaultTimeout = 15 * time.Second

// Client calls the logrelay HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send posts an event to /test-elasticsearch. A delivery failure reported by
// the service (HTTP 500 with a JSON body) is returned as a response, not an error.
func (c *Client) Send(ctx context.Context, event models.EventRequest) (*models.DeliveryResponse, error) {
	return c.post(ctx, "/test-elasticsearch", event)
}

// SendLogstash posts an event to /test-logstash.
func (c *Client) SendLogstash(ctx context.Context, event models.EventRequest) (*models.DeliveryResponse, error) {
	return c.post(ctx, "/test-logstash", event)
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (*health.Report, error) {
	var report health.Report
	if err := c.get(ctx, "/health", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Stats fetches /api/v1/stats. It returns nil when the service runs without Redis.
func (c *Client) Stats(ctx context.Context, service string) (*stats.Stats, error) {
	path := "/api/v1/stats"
	if service != "" {
		path += "?service=" + url.QueryEscape(service)
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	var disabled struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(raw, &disabled); err == nil && disabled.Enabled != nil && !*disabled.Enabled {
		return nil, nil
	}

	var s stats.Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &s, nil
}

func (c *Client) post(ctx context.Context, path string, event models.EventRequest) (*models.DeliveryResponse, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var result models.DeliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
