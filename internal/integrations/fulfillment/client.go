package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"lex-dialog/internal/domain"
)

// tokenPayload is the expected JSON shape stored in SSM for the webhook token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx webhook responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fulfillment: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client posts fulfillment code hook events to a webhook.
type Client struct {
	endpoint   string
	httpClient *http.Client

	getter    Getter
	tokenName string
	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenFromParamStore sends a bearer token read from SSM at
// <prefix>/fulfillment-token. The token is fetched on the first call and
// reused for the lifetime of the process.
func WithTokenFromParamStore(ps Getter, paramPrefix string) Option {
	return func(c *Client) {
		c.getter = ps
		c.tokenName = strings.TrimRight(strings.TrimSpace(paramPrefix), "/") + "/fulfillment-token"
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("fulfillment: endpoint must not be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.getter == nil && c.tokenName != "" {
		return nil, errors.New("fulfillment: paramstore getter must not be nil")
	}
	return c, nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	if c.getter == nil {
		return "", nil
	}
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = fetchTokenFromParamStore(ctx, c.getter, c.tokenName)
	})
	return c.token, c.tokenErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Fulfill posts the event and returns the hook's validated response.
func (c *Client) Fulfill(ctx context.Context, event domain.CodeHookEvent) (domain.CodeHookResponse, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return domain.CodeHookResponse{}, err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return domain.CodeHookResponse{}, fmt.Errorf("fulfillment: marshal event: %w", err)
	}
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return domain.CodeHookResponse{}, fmt.Errorf("fulfillment: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return domain.CodeHookResponse{}, fmt.Errorf("fulfillment: request failed: %w", err)
	}
	var resp domain.CodeHookResponse
	if decErr := json.Unmarshal(raw, &resp); decErr != nil {
		return domain.CodeHookResponse{}, fmt.Errorf("fulfillment: decode response: %w", decErr)
	}
	if err := resp.Validate(); err != nil {
		return domain.CodeHookResponse{}, fmt.Errorf("fulfillment: invalid response: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        c.endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchTokenFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fulfillment: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("fulfillment: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("fulfillment: webhook token is empty")
	}
	return tp.Token, nil
}
