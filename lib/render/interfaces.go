// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/ref"
)

// Agent opens the event stream for one turn. *agentstream.Client
// implements it.
type Agent interface {
	Stream(ctx context.Context, request agentstream.Request) (*agentstream.Stream, error)
}

// MessageSink posts and updates chat messages. Implementations own
// retries, rate limiting and per-call timeouts; the renderer treats
// every error as transient.
type MessageSink interface {
	// Post adds a message to thread and returns its reference.
	Post(ctx context.Context, thread ref.ThreadRef, blocks []blockfmt.Block, fallback string) (ref.MessageRef, error)

	// Update replaces the content of a posted message.
	Update(ctx context.Context, message ref.MessageRef, blocks []blockfmt.Block, fallback string) error
}

// IdentityResolver reports the bot's own user ID.
type IdentityResolver interface {
	Identity(ctx context.Context) (ref.UserID, error)
}

// DisplayNames resolves user display names for history attribution.
// *usercache.Cache implements it.
type DisplayNames interface {
	DisplayName(ctx context.Context, user ref.UserID) (string, error)
}

// IdentityFunc adapts a function to IdentityResolver.
type IdentityFunc func(ctx context.Context) (ref.UserID, error)

func (f IdentityFunc) Identity(ctx context.Context) (ref.UserID, error) { return f(ctx) }
