package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/drbridge/pkg/api"
	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
)

// DefaultTimeout bounds every request made by the CLI
const DefaultTimeout = 10 * time.Second

// Client talks to a running bridge over its HTTP API
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for addr, which may be host:port or a full URL
func NewClient(addr string) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("bridge address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Ready returns the bridge readiness report. A bridge that answers 503 is
// reported through the Status field, not as an error.
func (c *Client) Ready(ctx context.Context) (*metrics.HealthStatus, error) {
	var status metrics.HealthStatus
	code, err := c.get(ctx, "/ready", &status)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK && code != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d from /ready", code)
	}
	return &status, nil
}

// ListRequests lists stored data requests, optionally filtered by state
func (c *Client) ListRequests(ctx context.Context, state types.DrState) (*api.ListResponse, error) {
	path := "/v1/requests"
	if state != "" {
		path += "?state=" + url.QueryEscape(string(state))
	}

	var resp api.ListResponse
	code, err := c.get(ctx, path, &resp)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("failed to list requests: HTTP %d", code)
	}
	return &resp, nil
}

// GetRequest fetches one stored data request. It returns an error wrapping
// storage.ErrNotFound when the bridge has not relayed id yet.
func (c *Client) GetRequest(ctx context.Context, id uint64) (*api.RequestResponse, error) {
	var resp api.RequestResponse
	code, err := c.get(ctx, "/v1/requests/"+strconv.FormatUint(id, 10), &resp)
	if err != nil {
		return nil, err
	}
	switch code {
	case http.StatusOK:
		return &resp, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	default:
		return nil, fmt.Errorf("failed to get request %d: HTTP %d", id, code)
	}
}

// get decodes a JSON body into out when the status is 200 or 503
func (c *Client) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusServiceUnavailable {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return resp.StatusCode, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
