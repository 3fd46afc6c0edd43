// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package usercache caches Slack user display names for the life of
// the process. It is shared by every turn; writes are idempotent and
// the last writer wins.
package usercache

import (
	"context"
	"sync"

	"github.com/bureau-foundation/courier/lib/ref"
)

// Resolver looks a display name up at the source, usually users.info.
type Resolver func(ctx context.Context, user ref.UserID) (string, error)

// Cache is a read-through display name cache. The zero value is not
// usable; call New.
type Cache struct {
	resolve Resolver

	mu    sync.RWMutex
	names map[ref.UserID]string
}

// New returns an empty cache backed by resolve.
func New(resolve Resolver) *Cache {
	return &Cache{resolve: resolve, names: make(map[ref.UserID]string)}
}

// DisplayName returns the cached name or resolves and caches it.
// Failed lookups are not cached. Concurrent misses for the same user
// may each call the resolver.
func (c *Cache) DisplayName(ctx context.Context, user ref.UserID) (string, error) {
	if name, ok := c.Lookup(user); ok {
		return name, nil
	}
	name, err := c.resolve(ctx, user)
	if err != nil {
		return "", err
	}
	c.Store(user, name)
	return name, nil
}

// Lookup returns a cached name without resolving.
func (c *Cache) Lookup(user ref.UserID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[user]
	return name, ok
}

// Store records a name, replacing any earlier one.
func (c *Cache) Store(user ref.UserID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[user] = name
}

// Len reports how many users are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
