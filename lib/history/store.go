// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/ref"
)

// Entry is one message in a thread's conversation.
type Entry struct {
	Role    agentstream.Role
	Content string

	// Author is the display name of the user who wrote a user entry.
	// Empty for assistant entries.
	Author string

	// Metadata is whatever the agent attached to its final answer.
	Metadata map[string]any

	// Time is when the entry was appended. Stores set it when the
	// caller leaves it zero.
	Time time.Time
}

// Store is an append-only per-thread log. Implementations are safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, thread ref.ThreadRef, entry Entry) error
	History(ctx context.Context, thread ref.ThreadRef) ([]Entry, error)
}

// Messages converts entries to the agent request form, keeping at most
// the newest limit entries. Zero limit keeps everything.
func Messages(entries []Entry, limit int) []agentstream.Message {
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	messages := make([]agentstream.Message, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, agentstream.Message{Role: entry.Role, Content: entry.Content})
	}
	return messages
}

// Memory is a Store that lives in process memory.
type Memory struct {
	now func() time.Time

	mu      sync.Mutex
	threads map[ref.ThreadRef][]Entry
}

// NewMemory returns an empty in-memory store. now stamps entries
// appended without a time; nil means time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, threads: make(map[ref.ThreadRef][]Entry)}
}

func (m *Memory) Append(ctx context.Context, thread ref.ThreadRef, entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = m.now()
	}
	entry.Metadata = maps.Clone(entry.Metadata)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread] = append(m.threads[thread], entry)
	return nil
}

// History returns a copy of the thread's entries, oldest first.
func (m *Memory) History(ctx context.Context, thread ref.ThreadRef) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]Entry, len(m.threads[thread]))
	copy(entries, m.threads[thread])
	return entries, nil
}
