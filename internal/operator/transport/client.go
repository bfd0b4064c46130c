// Package transport implements the outbound HTTP client operator adapters
// post through. It owns the wire mechanics (URL building, auth header, JSON
// decoding) and surfaces operator failures as *operator.NativeError so
// adapters can translate them. Retries, if ever added, belong here and stay
// invisible to adapters.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dcbgate/internal/operator"
	"dcbgate/pkg/sentinel"
)

// Client posts operator API calls to the billing network base URL. Parameters
// travel in the query string; the body stays empty, matching the upstream
// convention.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient swaps the underlying client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		// No per-request timeout here: adapters bound each call with the
		// profile timeout through the context.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post implements operator.Transport.
func (c *Client) Post(ctx context.Context, endpoint string, params map[string]string) (map[string]any, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", sentinel.ErrUnavailable, err)
	}

	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, &operator.NativeError{
				Code:       "MALFORMED_RESPONSE",
				Message:    fmt.Sprintf("undecodable response (%d bytes)", len(body)),
				HTTPStatus: resp.StatusCode,
			}
		}
	}

	// Upstream signals failure in the body regardless of HTTP status.
	if errField, ok := payload["error"].(map[string]any); ok {
		return nil, &operator.NativeError{
			Code:       stringField(errField, "code"),
			Message:    stringField(errField, "message"),
			HTTPStatus: resp.StatusCode,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &operator.NativeError{
			Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:    http.StatusText(resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
