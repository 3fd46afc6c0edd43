// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/history"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/testutil"
)

var testEpoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// sinkCall is one Post or Update observed by recordingSink.
type sinkCall struct {
	op       string
	message  ref.MessageRef
	blocks   []blockfmt.Block
	fallback string
}

// recordingSink keeps every call and the current content of every
// message, in posting order.
type recordingSink struct {
	t *testing.T

	mu       sync.Mutex
	calls    []sinkCall
	order    []ref.MessageRef
	contents map[ref.MessageRef][]blockfmt.Block
	history  map[ref.MessageRef][]string

	// failNext makes the next n calls of op ("post" or "update") fail.
	failNext map[string]int
}

func newRecordingSink(t *testing.T) *recordingSink {
	return &recordingSink{
		t:        t,
		contents: make(map[ref.MessageRef][]blockfmt.Block),
		history:  make(map[ref.MessageRef][]string),
		failNext: make(map[string]int),
	}
}

func (s *recordingSink) fail(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = n
}

func (s *recordingSink) Post(ctx context.Context, thread ref.ThreadRef, blocks []blockfmt.Block, fallback string) (ref.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext["post"] > 0 {
		s.failNext["post"]--
		return ref.MessageRef{}, errors.New("chat.postMessage: internal_error")
	}
	message, err := ref.NewMessageRef(thread.Channel.String(), testutil.Timestamp())
	if err != nil {
		s.t.Fatalf("minting message ref: %v", err)
	}
	s.record("post", message, blocks, fallback)
	s.order = append(s.order, message)
	return message, nil
}

func (s *recordingSink) Update(ctx context.Context, message ref.MessageRef, blocks []blockfmt.Block, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contents[message]; !ok {
		s.t.Errorf("update of unknown message %s", message)
	}
	if s.failNext["update"] > 0 {
		s.failNext["update"]--
		return errors.New("chat.update: ratelimited")
	}
	s.record("update", message, blocks, fallback)
	return nil
}

func (s *recordingSink) record(op string, message ref.MessageRef, blocks []blockfmt.Block, fallback string) {
	copied := append([]blockfmt.Block(nil), blocks...)
	s.calls = append(s.calls, sinkCall{op: op, message: message, blocks: copied, fallback: fallback})
	s.contents[message] = copied
	s.history[message] = append(s.history[message], joinBlocks(copied))
	for _, block := range copied {
		if block.Kind != blockfmt.Divider && block.Length() == 0 {
			s.t.Errorf("%s of %s carried an empty %s block", op, message, block.Kind)
		}
	}
}

func (s *recordingSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// text returns the current content of the n-th posted message.
func (s *recordingSink) text(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return joinBlocks(s.contents[s.order[n]])
}

// updates counts the successful updates of the n-th posted message.
func (s *recordingSink) updates(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if call.op == "update" && call.message == s.order[n] {
			count++
		}
	}
	return count
}

func joinBlocks(blocks []blockfmt.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		switch block.Kind {
		case blockfmt.Divider:
			parts = append(parts, "---")
		default:
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// scriptedAgent serves one stream built from events. after, if set,
// runs before each event is handed out with the number of events the
// renderer has fully processed.
type scriptedAgent struct {
	events  []agentstream.Event
	err     error
	failAt  int
	failErr error
	after   func(processed int)

	request *agentstream.Request
	closed  bool
}

func (a *scriptedAgent) Stream(ctx context.Context, request agentstream.Request) (*agentstream.Stream, error) {
	a.request = &request
	if a.err != nil {
		return nil, a.err
	}
	index := 0
	return agentstream.NewStream(func() (agentstream.Event, error) {
		if a.after != nil {
			a.after(index)
		}
		if a.failErr != nil && index == a.failAt {
			return agentstream.Event{}, a.failErr
		}
		if index == len(a.events) {
			return agentstream.Event{}, io.EOF
		}
		event := a.events[index]
		index++
		return event, nil
	}, closerFunc(func() error { a.closed = true; return nil })), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func botIdentity(t *testing.T) IdentityResolver {
	bot, err := ref.ParseUserID("U0BOT")
	if err != nil {
		t.Fatal(err)
	}
	return IdentityFunc(func(ctx context.Context) (ref.UserID, error) { return bot, nil })
}

func testThread(t *testing.T) ref.ThreadRef {
	t.Helper()
	thread, err := ref.NewThreadRef("C0TEST", "1700000000.000001")
	if err != nil {
		t.Fatal(err)
	}
	return thread
}

type harness struct {
	sink     *recordingSink
	agent    *scriptedAgent
	history  *history.Memory
	clock    *clock.FakeClock
	renderer *Renderer
	thread   ref.ThreadRef
}

func newHarness(t *testing.T, agent *scriptedAgent, configure func(*Config)) *harness {
	t.Helper()
	h := &harness{
		sink:    newRecordingSink(t),
		agent:   agent,
		history: history.NewMemory(func() time.Time { return testEpoch }),
		clock:   clock.Fake(testEpoch),
		thread:  testThread(t),
	}
	config := Config{
		Agent:     agent,
		Sink:      h.sink,
		History:   h.history,
		Identity:  botIdentity(t),
		Clock:     h.clock,
		Logger:    slog.New(slog.DiscardHandler),
		NewTurnID: func() string { return testutil.UniqueID("turn") },
	}
	if configure != nil {
		configure(&config)
	}
	renderer, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.renderer = renderer
	return h
}

func (h *harness) run(t *testing.T, prompt string) error {
	t.Helper()
	return h.renderer.RenderTurn(context.Background(), h.thread, Prompt{Text: prompt})
}

func (h *harness) committed(t *testing.T) []history.Entry {
	t.Helper()
	entries, err := h.history.History(context.Background(), h.thread)
	if err != nil {
		t.Fatal(err)
	}
	return entries
}
