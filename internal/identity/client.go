package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kvo5/marvel-madness/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUserNotFound is returned when the provider has no such user.
var ErrUserNotFound = errors.New("identity user not found")

// APIError is an error response from the provider's backend API.
type APIError struct {
	Status int           `json:"-"`
	Errors []ErrorDetail `json:"errors"`
}

// ErrorDetail is one entry of an APIError.
type ErrorDetail struct {
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
	Code        string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity api status %d: %s", e.Status, e.Message())
}

// Message returns the first error message reported by the provider.
func (e *APIError) Message() string {
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return e.Errors[0].Message
	}
	return http.StatusText(e.Status)
}

// Client calls the provider's backend user API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient returns a Client for baseURL authenticated with secretKey.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// UpdatePublicMetadata merges metadata into the user's public metadata.
func (c *Client) UpdatePublicMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	body := map[string]any{"public_metadata": metadata}
	return c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/metadata", body)
}

// DeleteUser removes the user. A user that is already gone yields ErrUserNotFound.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal identity request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.UpstreamLatency.WithLabelValues("identity").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamRequests.WithLabelValues("identity", "transport_error").Inc()
		return fmt.Errorf("identity request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		observability.UpstreamRequests.WithLabelValues("identity", "ok").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	observability.UpstreamRequests.WithLabelValues("identity", "error").Inc()
	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrUserNotFound, apiErr)
	}
	return apiErr
}
