// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/secret"
)

// DefaultMaxAttempts bounds the tries of one call when MaxAttempts is
// zero.
const DefaultMaxAttempts = 3

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Token is the bot token (xoxb-). The Buffer is read but not
	// closed; the caller retains ownership.
	Token *secret.Buffer

	// AppToken is the app-level token (xapp-) needed only to open a
	// Socket Mode connection through API. Optional.
	AppToken *secret.Buffer

	// APIURL overrides https://slack.com/api/. It must end in a slash.
	APIURL string

	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// Limiter paces outbound calls. Nil means no client-side pacing.
	Limiter *rate.Limiter

	// MaxAttempts bounds how often one call is tried when Slack keeps
	// answering 429. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Clock times Retry-After sleeps. Nil means clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
}

// Client is a Slack Web API client scoped to what the renderer needs.
// It is safe for concurrent use.
type Client struct {
	api         *slack.Client
	limiter     *rate.Limiter
	maxAttempts int
	clock       clock.Clock
	logger      *slog.Logger

	identityMu sync.Mutex
	identity   ref.UserID
}

// NewClient creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == nil {
		return nil, errors.New("messaging: Token is required")
	}
	if config.APIURL != "" {
		if _, err := url.Parse(config.APIURL); err != nil {
			return nil, fmt.Errorf("messaging: invalid APIURL %q: %w", config.APIURL, err)
		}
		if !strings.HasSuffix(config.APIURL, "/") {
			return nil, fmt.Errorf("messaging: APIURL %q must end in /", config.APIURL)
		}
	}
	if config.MaxAttempts < 0 {
		return nil, fmt.Errorf("messaging: MaxAttempts must not be negative, got %d", config.MaxAttempts)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	// Tokens are converted to strings at the library boundary.
	options := []slack.Option{
		slack.OptionLog(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
	}
	if config.APIURL != "" {
		options = append(options, slack.OptionAPIURL(config.APIURL))
	}
	if config.HTTPClient != nil {
		options = append(options, slack.OptionHTTPClient(config.HTTPClient))
	}
	if config.AppToken != nil {
		options = append(options, slack.OptionAppLevelToken(config.AppToken.String()))
	}

	return &Client{
		api:         slack.New(config.Token.String(), options...),
		limiter:     config.Limiter,
		maxAttempts: maxAttempts,
		clock:       clk,
		logger:      logger,
	}, nil
}

// API returns the underlying slack-go client, for Socket Mode.
func (c *Client) API() *slack.Client { return c.api }

// Post sends blocks as a reply in thread. A thread with no root
// timestamp posts at the top of the channel.
func (c *Client) Post(ctx context.Context, thread ref.ThreadRef, blocks []blockfmt.Block, fallback string) (ref.MessageRef, error) {
	options := []slack.MsgOption{
		slack.MsgOptionBlocks(SlackBlocks(blocks)...),
		slack.MsgOptionText(fallback, false),
	}
	if !thread.Root.IsZero() {
		options = append(options, slack.MsgOptionTS(thread.Root.String()))
	}

	var channel, timestamp string
	err := c.call(ctx, "chat.postMessage", func() error {
		var err error
		channel, timestamp, err = c.api.PostMessageContext(ctx, thread.Channel.String(), options...)
		return err
	})
	if err != nil {
		return ref.MessageRef{}, fmt.Errorf("messaging: posting to %s: %w", thread, err)
	}

	message, err := ref.NewMessageRef(channel, timestamp)
	if err != nil {
		return ref.MessageRef{}, fmt.Errorf("messaging: chat.postMessage returned an invalid message reference: %w", err)
	}
	return message, nil
}

// Update replaces the content of a posted message.
func (c *Client) Update(ctx context.Context, message ref.MessageRef, blocks []blockfmt.Block, fallback string) error {
	err := c.call(ctx, "chat.update", func() error {
		_, _, _, err := c.api.UpdateMessageContext(ctx, message.Channel.String(), message.TS.String(),
			slack.MsgOptionBlocks(SlackBlocks(blocks)...),
			slack.MsgOptionText(fallback, false),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("messaging: updating %s: %w", message, err)
	}
	return nil
}

// Identity returns the bot's user ID from auth.test. The first success
// is cached for the life of the Client; failures are not.
func (c *Client) Identity(ctx context.Context) (ref.UserID, error) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	if !c.identity.IsZero() {
		return c.identity, nil
	}

	var response *slack.AuthTestResponse
	err := c.call(ctx, "auth.test", func() error {
		var err error
		response, err = c.api.AuthTestContext(ctx)
		return err
	})
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: auth.test: %w", err)
	}
	user, err := ref.ParseUserID(response.UserID)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: auth.test returned an invalid user: %w", err)
	}

	c.logger.Info("resolved slack identity", "user_id", user.String(), "team", response.Team)
	c.identity = user
	return user, nil
}

// DisplayName looks up a user's display name with users.info, falling
// back to the real name and then the account name.
func (c *Client) DisplayName(ctx context.Context, user ref.UserID) (string, error) {
	var info *slack.User
	err := c.call(ctx, "users.info", func() error {
		var err error
		info, err = c.api.GetUserInfoContext(ctx, user.String())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("messaging: users.info %s: %w", user, err)
	}
	for _, name := range []string{info.Profile.DisplayName, info.Profile.RealName, info.RealName, info.Name} {
		if name != "" {
			return name, nil
		}
	}
	return user.String(), nil
}

// call runs do, waiting on the limiter first and retrying after a 429
// until maxAttempts tries have been made.
func (c *Client) call(ctx context.Context, method string, do func() error) error {
	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for %s: %w", method, err)
			}
		}

		err := do()
		var limited *slack.RateLimitedError
		if err == nil || !errors.As(err, &limited) || attempt >= c.maxAttempts {
			return err
		}

		c.logger.Warn("slack rate limited, retrying",
			"method", method,
			"attempt", attempt,
			"retry_after", limited.RetryAfter,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(limited.RetryAfter):
		}
	}
}
