// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// ChannelID is a Slack conversation ID: a public channel ("C…"), a
// private channel or group ("G…"), or a direct message ("D…").
type ChannelID struct {
	id string
}

// ParseChannelID validates a raw conversation ID.
func ParseChannelID(raw string) (ChannelID, error) {
	if err := validateSlackID(raw, "channel ID", "CDG"); err != nil {
		return ChannelID{}, err
	}
	return ChannelID{id: raw}, nil
}

func (c ChannelID) String() string { return c.id }

// IsZero reports whether c is the zero value.
func (c ChannelID) IsZero() bool { return c.id == "" }

// IsDirect reports whether the conversation is a direct message.
func (c ChannelID) IsDirect() bool { return strings.HasPrefix(c.id, "D") }

// UserID is a Slack user ID ("U…" or, for Enterprise Grid, "W…"). Bot
// users have ordinary user IDs.
type UserID struct {
	id string
}

// ParseUserID validates a raw user ID.
func ParseUserID(raw string) (UserID, error) {
	if err := validateSlackID(raw, "user ID", "UW"); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

func (u UserID) String() string { return u.id }

// IsZero reports whether u is the zero value.
func (u UserID) IsZero() bool { return u.id == "" }

// Mention returns the mrkdwn mention token for the user ("<@U123>").
func (u UserID) Mention() string { return "<@" + u.id + ">" }

// Timestamp is a Slack message timestamp ("1712345678.000100"). It is
// both the message's identity within its channel and its position.
type Timestamp struct {
	ts string
}

// ParseTimestamp validates a raw message timestamp: decimal seconds, a
// dot, decimal microseconds.
func ParseTimestamp(raw string) (Timestamp, error) {
	if raw == "" {
		return Timestamp{}, fmt.Errorf("empty message timestamp")
	}
	seconds, micros, found := strings.Cut(raw, ".")
	if !found || seconds == "" || micros == "" {
		return Timestamp{}, fmt.Errorf("message timestamp must be <seconds>.<micros>: %q", raw)
	}
	if !allDigits(seconds) || !allDigits(micros) {
		return Timestamp{}, fmt.Errorf("message timestamp must be numeric: %q", raw)
	}
	return Timestamp{ts: raw}, nil
}

func (t Timestamp) String() string { return t.ts }

// IsZero reports whether t is the zero value.
func (t Timestamp) IsZero() bool { return t.ts == "" }

// ThreadRef identifies a thread: the channel and the timestamp of the
// thread's root message. Every reply posted to a ThreadRef lands in the
// same thread.
type ThreadRef struct {
	Channel ChannelID
	Root    Timestamp
}

// NewThreadRef parses a channel ID and root timestamp into a ThreadRef.
func NewThreadRef(channel, root string) (ThreadRef, error) {
	channelID, err := ParseChannelID(channel)
	if err != nil {
		return ThreadRef{}, err
	}
	rootTS, err := ParseTimestamp(root)
	if err != nil {
		return ThreadRef{}, err
	}
	return ThreadRef{Channel: channelID, Root: rootTS}, nil
}

// String returns "<channel>/<root>", the key used for history storage
// and per-thread locking.
func (t ThreadRef) String() string { return t.Channel.String() + "/" + t.Root.String() }

// IsZero reports whether t is the zero value.
func (t ThreadRef) IsZero() bool { return t.Channel.IsZero() && t.Root.IsZero() }

// MessageRef identifies one posted message so it can be updated in
// place with chat.update.
type MessageRef struct {
	Channel ChannelID
	TS      Timestamp
}

// NewMessageRef parses a channel ID and message timestamp.
func NewMessageRef(channel, ts string) (MessageRef, error) {
	channelID, err := ParseChannelID(channel)
	if err != nil {
		return MessageRef{}, err
	}
	timestamp, err := ParseTimestamp(ts)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{Channel: channelID, TS: timestamp}, nil
}

func (m MessageRef) String() string { return m.Channel.String() + "/" + m.TS.String() }

// IsZero reports whether m is the zero value.
func (m MessageRef) IsZero() bool { return m.Channel.IsZero() && m.TS.IsZero() }

// validateSlackID checks the shape Slack uses for object IDs: a type
// prefix letter followed by upper-case alphanumerics.
func validateSlackID(raw, kind, prefixes string) error {
	if raw == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if !strings.ContainsRune(prefixes, rune(raw[0])) {
		return fmt.Errorf("%s must start with one of %q: %q", kind, prefixes, raw)
	}
	if len(raw) < 2 {
		return fmt.Errorf("%s too short: %q", kind, raw)
	}
	for index := 1; index < len(raw); index++ {
		c := raw[index]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("%s contains invalid character %q: %q", kind, c, raw)
		}
	}
	return nil
}

func allDigits(s string) bool {
	for index := 0; index < len(s); index++ {
		if s[index] < '0' || s[index] > '9' {
			return false
		}
	}
	return true
}
