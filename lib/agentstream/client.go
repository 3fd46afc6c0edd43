// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/courier/lib/netutil"
	"github.com/bureau-foundation/courier/lib/version"
)

// ClientConfig configures a backend client.
type ClientConfig struct {
	// BaseURL is the backend root, e.g. "http://agent:8000".
	BaseURL string

	// HTTPClient is used for requests. It must not set a whole-request
	// timeout shorter than the longest expected turn. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives request and skipped-line diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Client opens event streams against the agent backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("agentstream: invalid base URL %q: %w", config.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("agentstream: base URL %q must be http or https", config.BaseURL)
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
		endpoint:   base.String() + "/generate",
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HTTPError is a non-200 reply from the backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("agentstream: backend returned HTTP %d: %s", e.StatusCode, Preview(e.Body, PreviewChars))
}

// Stream posts request and returns the response as an event stream.
// The caller must Close the stream.
func (client *Client) Stream(ctx context.Context, request Request) (*Stream, error) {
	request.History = withoutSystem(request.History)
	if request.History == nil {
		request.History = []Message{}
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("agentstream: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agentstream: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/x-ndjson")
	httpRequest.Header.Set("User-Agent", version.UserAgent("courier"))

	client.logger.Debug("opening agent stream",
		"endpoint", client.endpoint,
		"history_messages", len(request.History),
		"images", len(request.Prompt.Images),
	)

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("agentstream: sending request: %w", err)
	}
	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, &HTTPError{
			StatusCode: httpResponse.StatusCode,
			Body:       netutil.ErrorBody(httpResponse.Body),
		}
	}
	return Decode(httpResponse.Body, httpResponse.Body, client.logger), nil
}
