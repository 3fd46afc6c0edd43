// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/courier/lib/history"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/render"
)

// Turner runs one turn. *render.Renderer implements it.
type Turner interface {
	RenderTurn(ctx context.Context, thread ref.ThreadRef, prompt render.Prompt) error
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Turner Turner

	// History decides whether an unmentioned thread reply continues a
	// conversation the bot is part of.
	History history.Store

	// AllowedChannels restricts the conversations the bot answers in.
	// Empty allows all of them.
	AllowedChannels []ref.ChannelID

	// TurnTimeout bounds one turn. Zero means no limit.
	TurnTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Dispatcher starts a turn for every accepted trigger. Turns in the
// same thread run one at a time in arrival order; turns in different
// threads run concurrently.
type Dispatcher struct {
	config DispatcherConfig
	logger *slog.Logger

	mu      sync.Mutex
	threads map[ref.ThreadRef]*threadQueue

	activeTurns sync.WaitGroup
}

// threadQueue chains the turns of one thread: each turn waits for the
// done channel of the turn queued before it. pending counts queued and
// running turns so an idle queue can be dropped.
type threadQueue struct {
	tail    chan struct{}
	pending int
}

// NewDispatcher returns a Dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Turner == nil || config.History == nil {
		return nil, errors.New("bot: Turner and History are required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		config:  config,
		logger:  logger,
		threads: make(map[ref.ThreadRef]*threadQueue),
	}, nil
}

// Dispatch decides whether trigger starts a turn and, if so, starts it
// in the background. It reports whether a turn was started. ctx bounds
// the turn, so cancelling it aborts every turn started from it.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger Trigger) bool {
	logger := d.logger.With("thread", trigger.Thread.String(), "user", trigger.Author.String())
	if !d.allowed(trigger.Thread.Channel) {
		logger.Debug("ignoring message in a channel that is not allowed")
		return false
	}
	if !trigger.Mention && !trigger.Direct {
		if !trigger.Reply || !d.participating(ctx, trigger.Thread) {
			return false
		}
	}

	previous, done := d.enqueue(trigger.Thread)
	d.activeTurns.Add(1)
	go func() {
		defer d.activeTurns.Done()
		defer d.finish(trigger.Thread, done)
		if previous != nil {
			<-previous
		}

		turnCtx := ctx
		if d.config.TurnTimeout > 0 {
			var cancel context.CancelFunc
			turnCtx, cancel = context.WithTimeout(ctx, d.config.TurnTimeout)
			defer cancel()
		}
		err := d.config.Turner.RenderTurn(turnCtx, trigger.Thread, render.Prompt{
			Text:   trigger.Text,
			Images: trigger.Images,
			Author: trigger.Author,
		})
		if err != nil {
			logger.Warn("turn failed", "error", err)
			return
		}
		logger.Debug("turn completed")
	}()
	return true
}

// Wait blocks until every started turn has returned.
func (d *Dispatcher) Wait() {
	d.activeTurns.Wait()
}

func (d *Dispatcher) allowed(channel ref.ChannelID) bool {
	return len(d.config.AllowedChannels) == 0 || slices.Contains(d.config.AllowedChannels, channel)
}

func (d *Dispatcher) participating(ctx context.Context, thread ref.ThreadRef) bool {
	entries, err := d.config.History.History(ctx, thread)
	if err != nil {
		d.logger.Warn("reading history failed, ignoring thread reply", "thread", thread.String(), "error", err)
		return false
	}
	return len(entries) > 0
}

// enqueue appends a turn to thread's queue. The turn may start once
// previous is closed (nil means immediately) and must call finish with
// done when it returns. Queueing happens synchronously in Dispatch, so
// turns run in the order they were dispatched.
func (d *Dispatcher) enqueue(thread ref.ThreadRef) (previous <-chan struct{}, done chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	queue := d.threads[thread]
	if queue == nil {
		queue = &threadQueue{}
		d.threads[thread] = queue
	}
	if queue.tail != nil {
		previous = queue.tail
	}
	done = make(chan struct{})
	queue.tail = done
	queue.pending++
	return previous, done
}

func (d *Dispatcher) finish(thread ref.ThreadRef, done chan struct{}) {
	close(done)
	d.mu.Lock()
	defer d.mu.Unlock()
	queue := d.threads[thread]
	queue.pending--
	if queue.pending == 0 {
		delete(d.threads, thread)
	}
}

// queued returns the number of turns queued or running in thread.
func (d *Dispatcher) queued(thread ref.ThreadRef) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if queue := d.threads[thread]; queue != nil {
		return queue.pending
	}
	return 0
}
