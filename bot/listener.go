// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/bureau-foundation/courier/lib/render"
)

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	Dispatcher *Dispatcher

	// Identity identifies the bot's own messages.
	Identity render.IdentityResolver

	// Ack acknowledges a Socket Mode envelope. Usually
	// (*socketmode.Client).Ack.
	Ack func(request socketmode.Request)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Listener turns Socket Mode events into dispatched turns.
type Listener struct {
	config ListenerConfig
	logger *slog.Logger
}

// NewListener returns a Listener.
func NewListener(config ListenerConfig) (*Listener, error) {
	if config.Dispatcher == nil || config.Identity == nil || config.Ack == nil {
		return nil, errors.New("bot: Dispatcher, Identity and Ack are required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{config: config, logger: logger}, nil
}

// Run consumes events until ctx is cancelled or events is closed, then
// waits for the turns it started. Events carrying an envelope are
// acknowledged before they are handled so Slack does not redeliver
// them while a turn streams.
func (l *Listener) Run(ctx context.Context, events <-chan socketmode.Event) error {
	defer l.config.Dispatcher.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ctx, event)
		}
	}
}

func (l *Listener) handle(ctx context.Context, event socketmode.Event) {
	switch event.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("connecting to slack socket mode")
	case socketmode.EventTypeConnected:
		l.logger.Info("connected to slack socket mode")
	case socketmode.EventTypeConnectionError:
		l.logger.Warn("slack socket mode connection failed", "error", fmt.Sprint(event.Data))
	case socketmode.EventTypeEventsAPI:
		if event.Request != nil {
			l.config.Ack(*event.Request)
		}
		apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
		if !ok {
			l.logger.Warn("unexpected events api payload", "type", fmt.Sprintf("%T", event.Data))
			return
		}
		var payload []byte
		if event.Request != nil {
			payload = event.Request.Payload
		}
		l.handleEventsAPI(ctx, apiEvent, payload)
	default:
		if event.Request != nil {
			l.config.Ack(*event.Request)
		}
		l.logger.Debug("ignoring socket mode event", "type", string(event.Type))
	}
}

func (l *Listener) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent, payload []byte) {
	if event.Type != slackevents.CallbackEvent {
		l.logger.Debug("ignoring events api envelope", "type", event.Type)
		return
	}

	var (
		trigger Trigger
		err     error
	)
	switch inner := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		trigger, err = FromAppMention(inner)
	case *slackevents.MessageEvent:
		self, identityErr := l.config.Identity.Identity(ctx)
		if identityErr != nil {
			l.logger.Warn("resolving bot identity failed, dropping message", "error", identityErr)
			return
		}
		var accepted bool
		trigger, accepted, err = FromMessage(inner, self)
		if err == nil && !accepted {
			return
		}
	default:
		l.logger.Debug("ignoring inner event", "type", event.InnerEvent.Type)
		return
	}
	if err != nil {
		l.logger.Warn("malformed slack event", "type", event.InnerEvent.Type, "error", err)
		return
	}

	trigger.Images = ImagesFromPayload(payload)
	if l.config.Dispatcher.Dispatch(ctx, trigger) {
		l.logger.Info("turn started", "thread", trigger.Thread.String(), "user", trigger.Author.String(), "images", len(trigger.Images))
	}
}
