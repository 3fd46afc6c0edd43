// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Courier-replay renders a recorded agent transcript on the terminal.
//
// The transcript is the backend's NDJSON event stream, one event per
// line, read from a file or from stdin when the path is "-". Each post
// and update the renderer makes is printed as a frame, so a transcript
// shows exactly what a Slack thread would have displayed and when.
//
// Usage:
//
//	courier-replay [--delay 50ms] [--width 100] [--config courier.yaml] transcript.ndjson
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/config"
	"github.com/bureau-foundation/courier/lib/console"
	"github.com/bureau-foundation/courier/lib/history"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/render"
	"github.com/bureau-foundation/courier/lib/version"
)

const (
	replayChannel = "C0CONSOLE"
	replayBot     = "U0REPLAY"
	replayUser    = "U0CONSOLE"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, clock.Real()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, clk clock.Clock) error {
	flagSet := pflag.NewFlagSet("courier-replay", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configPath := flagSet.String("config", "", "read render settings from this courier.yaml")
	prompt := flagSet.String("prompt", "(replayed transcript)", "prompt text recorded as the user turn")
	delay := flagSet.Duration("delay", 0, "pause before each event")
	width := flagSet.Int("width", 0, "wrap width (default: terminal width or 80)")
	noColor := flagSet.Bool("no-color", false, "disable styling")
	verbose := flagSet.BoolP("verbose", "v", false, "log renderer decisions to stderr")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "courier-replay %s\n", version.Full())
		return nil
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: courier-replay [flags] <transcript.ndjson | ->")
	}
	if *delay < 0 {
		return fmt.Errorf("--delay must not be negative, got %v", *delay)
	}

	settings := config.Default().Render
	if *configPath != "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		settings = cfg.Render
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	self, err := ref.ParseUserID(replayBot)
	if err != nil {
		return err
	}
	author, err := ref.ParseUserID(replayUser)
	if err != nil {
		return err
	}
	thread, err := ref.NewThreadRef(replayChannel, fmt.Sprintf("%d.000000", clk.Now().Unix()))
	if err != nil {
		return err
	}

	renderer, err := render.New(render.Config{
		Agent: &transcriptAgent{
			path:   flagSet.Arg(0),
			stdin:  stdin,
			delay:  *delay,
			clock:  clk,
			logger: logger,
		},
		Sink:        console.New(console.Config{Output: stdout, Width: *width, NoColor: *noColor, Clock: clk}),
		History:     history.NewMemory(clk.Now),
		Identity:    render.IdentityFunc(func(context.Context) (ref.UserID, error) { return self, nil }),
		Policy:      settings.Flush,
		Markers:     settings.Markers,
		Limits:      settings.Limits,
		Placeholder: settings.Placeholder,
		Clock:       clk,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	return renderer.RenderTurn(ctx, thread, render.Prompt{Text: *prompt, Author: author})
}

// transcriptAgent serves a recorded event stream in place of the
// backend. Every Stream call replays the transcript from the start.
type transcriptAgent struct {
	path   string
	stdin  io.Reader
	delay  time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

func (a *transcriptAgent) Stream(ctx context.Context, request agentstream.Request) (*agentstream.Stream, error) {
	a.logger.Debug("replaying transcript", "path", a.path, "history", len(request.History))

	var decoded *agentstream.Stream
	if a.path == "-" {
		decoded = agentstream.Decode(a.stdin, nil, a.logger)
	} else {
		file, err := os.Open(a.path)
		if err != nil {
			return nil, fmt.Errorf("opening transcript: %w", err)
		}
		decoded = agentstream.Decode(file, file, a.logger)
	}
	if a.delay == 0 {
		return decoded, nil
	}
	return agentstream.NewStream(func() (agentstream.Event, error) {
		select {
		case <-a.clock.After(a.delay):
		case <-ctx.Done():
			return agentstream.Event{}, ctx.Err()
		}
		return decoded.Next()
	}, decoded), nil
}
