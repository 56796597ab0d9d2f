// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/concord-client/concord/lib/secret"
)

// DefaultBaseURL is the public REST API root.
const DefaultBaseURL = "https://discord.com/api/v9"

// maxResponseSize bounds JSON response body reads: 64 MB. Legitimate
// API responses are orders of magnitude smaller; the bound only
// protects against a pathological server exhausting memory.
const maxResponseSize int64 = 64 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root (e.g. "https://discord.com/api/v9").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client performs JSON requests against the service's REST API. It
// holds the base URL and HTTP transport and carries no credentials;
// callers pass the session token per request so that one Client can
// serve successive identities.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a REST client. Request URLs are built by direct string
// concatenation onto the validated base URL, which avoids the
// re-encoding pitfalls of url.URL.String for pre-escaped path
// segments.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("rest: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("rest: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Post performs a JSON POST. token may be nil for unauthenticated
// endpoints (login, MFA exchange). On a non-2xx response with the
// service's error shape, the returned error is a *APIError.
func (c *Client) Post(ctx context.Context, path string, token *secret.Buffer, requestBody any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, token, requestBody, nil)
}

// Get performs a GET with optional query parameters. token may be nil.
func (c *Client) Get(ctx context.Context, path string, token *secret.Buffer, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, token, nil, query)
}

// do performs an HTTP request and returns the response body. On a
// non-2xx status the body is returned alongside a *APIError so that
// callers needing error details (ticket state, retry hints) can still
// parse it.
func (c *Client) do(ctx context.Context, method, path string, token *secret.Buffer, requestBody any, query url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("rest: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("rest: creating request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		// User-account tokens are sent bare, without a scheme prefix.
		request.Header.Set("Authorization", token.String())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("rest: reading response body: %w", err)
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", response.StatusCode,
	)

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	var apiErr APIError
	if jsonErr := json.Unmarshal(responseBody, &apiErr); jsonErr != nil || apiErr.Message == "" {
		// Non-JSON or unrecognized error shape. Fail loud with the
		// raw body.
		return nil, fmt.Errorf("rest: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	apiErr.StatusCode = response.StatusCode

	return responseBody, &apiErr
}
