// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/courier/bot"
	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/config"
	"github.com/bureau-foundation/courier/lib/history"
	"github.com/bureau-foundation/courier/lib/render"
	"github.com/bureau-foundation/courier/lib/secret"
	"github.com/bureau-foundation/courier/lib/usercache"
	"github.com/bureau-foundation/courier/lib/version"
	"github.com/bureau-foundation/courier/messaging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("courier", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to courier.yaml (default $COURIER_CONFIG)")
	verbose := flagSet.BoolP("verbose", "v", false, "log at debug level")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("courier %s\n", version.Full())
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Logging, *verbose)
	slog.SetDefault(logger)
	logger.Info("starting courier", "version", version.Info(), "environment", string(cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botToken, err := secret.Load(cfg.Slack.BotToken)
	if err != nil {
		return fmt.Errorf("loading slack bot token from %s: %w", cfg.Slack.BotToken, err)
	}
	defer botToken.Close()
	appToken, err := secret.Load(cfg.Slack.AppToken)
	if err != nil {
		return fmt.Errorf("loading slack app token from %s: %w", cfg.Slack.AppToken, err)
	}
	defer appToken.Close()

	slackClient, err := messaging.NewClient(messaging.ClientConfig{
		Token:       botToken,
		AppToken:    appToken,
		APIURL:      cfg.Slack.APIURL,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Slack.RequestsPerSecond), cfg.Slack.Burst),
		MaxAttempts: cfg.Slack.MaxAttempts,
		Logger:      logger.With("component", "slack"),
	})
	if err != nil {
		return err
	}

	store, closeStore, err := openHistory(cfg.History, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	agent, err := agentstream.NewClient(agentstream.ClientConfig{
		BaseURL:    cfg.Agent.BaseURL,
		HTTPClient: agentHTTPClient(cfg.Agent.ConnectTimeout),
		Logger:     logger.With("component", "agent"),
	})
	if err != nil {
		return err
	}

	renderer, err := render.New(render.Config{
		Agent:        agent,
		Sink:         slackClient,
		History:      store,
		Identity:     slackClient,
		Names:        usercache.New(slackClient.DisplayName),
		Policy:       cfg.Render.Flush,
		Markers:      cfg.Render.Markers,
		Limits:       cfg.Render.Limits,
		Placeholder:  cfg.Render.Placeholder,
		HistoryLimit: cfg.History.MaxEntries,
		Logger:       logger.With("component", "render"),
	})
	if err != nil {
		return err
	}

	dispatcher, err := bot.NewDispatcher(bot.DispatcherConfig{
		Turner:          renderer,
		History:         store,
		AllowedChannels: cfg.Slack.AllowedChannels,
		TurnTimeout:     cfg.Agent.TurnTimeout,
		Logger:          logger.With("component", "dispatcher"),
	})
	if err != nil {
		return err
	}

	// A bad token should fail at startup, not on the first mention.
	if self, err := slackClient.Identity(ctx); err != nil {
		if messaging.IsAuthError(err) {
			return err
		}
		logger.Warn("resolving slack identity failed, will retry per turn", "error", err)
	} else {
		logger.Info("slack identity resolved", "user_id", self.String())
	}

	socket := socketmode.New(slackClient.API(),
		socketmode.OptionLog(slog.NewLogLogger(logger.With("component", "socketmode").Handler(), slog.LevelDebug)),
	)
	listener, err := bot.NewListener(bot.ListenerConfig{
		Dispatcher: dispatcher,
		Identity:   slackClient,
		Ack:        func(request socketmode.Request) { socket.Ack(request) },
		Logger:     logger.With("component", "listener"),
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socket.RunContext(runCtx)
		cancel()
	}()

	if err := listener.Run(runCtx, socket.Events); err != nil {
		return err
	}
	cancel()
	if err := <-socketDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode: %w", err)
	}
	logger.Info("courier stopped")
	return nil
}

// newLogger builds the process logger. verbose forces debug level.
func newLogger(output io.Writer, logging config.LoggingConfig, verbose bool) *slog.Logger {
	level := logging.Level
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(output, options))
	}
	return slog.New(slog.NewTextHandler(output, options))
}

// openHistory opens the configured store. The returned function closes
// it.
func openHistory(historyConfig config.HistoryConfig, logger *slog.Logger) (history.Store, func(), error) {
	switch historyConfig.Driver {
	case "sqlite":
		store, err := history.OpenSQLite(history.SQLiteConfig{
			Path:   historyConfig.Path,
			Clock:  clock.Real(),
			Logger: logger.With("component", "history"),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing history store failed", "error", err)
			}
		}, nil
	default:
		return history.NewMemory(nil), func() {}, nil
	}
}

// agentHTTPClient bounds connecting and waiting for response headers.
// The body streams for as long as the turn lasts.
func agentHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if connectTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = connectTimeout
		transport.ResponseHeaderTimeout = connectTimeout
	}
	return &http.Client{Transport: transport}
}
