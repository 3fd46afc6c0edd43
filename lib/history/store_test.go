// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/ref"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func thread(t *testing.T, root string) ref.ThreadRef {
	t.Helper()
	thread, err := ref.NewThreadRef("C0123ABCD", root)
	if err != nil {
		t.Fatal(err)
	}
	return thread
}

type storeCase struct {
	name string
	open func(t *testing.T) Store
}

func stores() []storeCase {
	return []storeCase{
		{name: "memory", open: func(t *testing.T) Store {
			return NewMemory(func() time.Time { return epoch })
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			store, err := OpenSQLite(SQLiteConfig{
				Path:   filepath.Join(t.TempDir(), "history.db"),
				Clock:  clock.Fake(epoch),
				Logger: slog.New(slog.DiscardHandler),
			})
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		}},
	}
}

func TestAppendAndHistory(t *testing.T) {
	for _, test := range stores() {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			store := test.open(t)
			first := thread(t, "1700000000.000100")
			second := thread(t, "1700000000.000200")

			entries := []Entry{
				{Role: agentstream.RoleUser, Content: "what's the weather?", Author: "Ada"},
				{Role: agentstream.RoleAssistant, Content: "Let me check.", Metadata: map[string]any{"model": "m1"}},
				{Role: agentstream.RoleAssistant, Content: "Sunny.", Time: epoch.Add(time.Minute)},
			}
			for _, entry := range entries {
				if err := store.Append(ctx, first, entry); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			if err := store.Append(ctx, second, Entry{Role: agentstream.RoleUser, Content: "other"}); err != nil {
				t.Fatal(err)
			}

			got, err := store.History(ctx, first)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d entries, want 3", len(got))
			}
			if got[0].Author != "Ada" || got[0].Content != "what's the weather?" || !got[0].Time.Equal(epoch) {
				t.Errorf("entry 0 = %+v", got[0])
			}
			if !reflect.DeepEqual(got[1].Metadata, map[string]any{"model": "m1"}) {
				t.Errorf("metadata = %#v", got[1].Metadata)
			}
			if got[2].Content != "Sunny." || !got[2].Time.Equal(epoch.Add(time.Minute)) {
				t.Errorf("entry 2 = %+v", got[2])
			}

			other, err := store.History(ctx, second)
			if err != nil {
				t.Fatal(err)
			}
			if len(other) != 1 || other[0].Content != "other" {
				t.Errorf("second thread = %+v", other)
			}

			empty, err := store.History(ctx, thread(t, "1700000000.000300"))
			if err != nil || len(empty) != 0 {
				t.Errorf("unknown thread = %v, %v", empty, err)
			}
		})
	}
}

func TestMemoryHistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(nil)
	key := thread(t, "1.1")
	store.Append(ctx, key, Entry{Role: agentstream.RoleUser, Content: "a"})

	got, _ := store.History(ctx, key)
	got[0].Content = "mutated"

	again, _ := store.History(ctx, key)
	if again[0].Content != "a" {
		t.Errorf("History exposed internal storage")
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	config := SQLiteConfig{Path: path, Clock: clock.Fake(epoch), Logger: slog.New(slog.DiscardHandler)}
	key := thread(t, "1.5")

	store, err := OpenSQLite(config)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, key, Entry{Role: agentstream.RoleUser, Content: "remember me"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenSQLite(config)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.History(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "remember me" {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestMessages(t *testing.T) {
	entries := []Entry{
		{Role: agentstream.RoleUser, Content: "1"},
		{Role: agentstream.RoleAssistant, Content: "2"},
		{Role: agentstream.RoleUser, Content: "3"},
	}
	got := Messages(entries, 2)
	want := []agentstream.Message{
		{Role: agentstream.RoleAssistant, Content: "2"},
		{Role: agentstream.RoleUser, Content: "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Messages(limit 2) = %+v", got)
	}
	if len(Messages(entries, 0)) != 3 {
		t.Error("zero limit must keep everything")
	}
}

func TestOpenSQLiteRequiresDependencies(t *testing.T) {
	if _, err := OpenSQLite(SQLiteConfig{Path: "x.db"}); err == nil {
		t.Error("missing clock accepted")
	}
}
