// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"

	"github.com/bureau-foundation/courier/lib/ref"
)

// Trigger is a Slack message that may start a turn.
type Trigger struct {
	// Thread is where the answer goes: the message's thread, or a new
	// thread rooted at the message itself.
	Thread ref.ThreadRef

	Author ref.UserID
	Text   string
	Images []string

	// Mention is set for app_mention events.
	Mention bool

	// Direct is set for messages in a direct conversation with the
	// bot.
	Direct bool

	// Reply is set when the message was posted inside an existing
	// thread.
	Reply bool
}

// Message event fields that decide whether a message starts a turn.
const (
	fileShareSubtype = "file_share"
	directChannel    = "im"
)

// FromAppMention converts an app_mention event.
func FromAppMention(event *slackevents.AppMentionEvent) (Trigger, error) {
	thread, reply, err := threadOf(event.Channel, event.TimeStamp, event.ThreadTimeStamp)
	if err != nil {
		return Trigger{}, err
	}
	author, err := ref.ParseUserID(event.User)
	if err != nil {
		return Trigger{}, fmt.Errorf("bot: app_mention author: %w", err)
	}
	return Trigger{Thread: thread, Author: author, Text: event.Text, Mention: true, Reply: reply}, nil
}

// FromMessage converts a message event. It reports false for messages
// that must not start a turn: bot messages (including self's), edits
// and other subtyped events, and channel messages that mention self,
// which arrive again as app_mention.
func FromMessage(event *slackevents.MessageEvent, self ref.UserID) (Trigger, bool, error) {
	if event.BotID != "" || event.User == "" || event.User == self.String() {
		return Trigger{}, false, nil
	}
	if event.SubType != "" && event.SubType != fileShareSubtype {
		return Trigger{}, false, nil
	}
	direct := event.ChannelType == directChannel
	if !direct && strings.Contains(event.Text, self.Mention()) {
		return Trigger{}, false, nil
	}

	thread, reply, err := threadOf(event.Channel, event.TimeStamp, event.ThreadTimeStamp)
	if err != nil {
		return Trigger{}, false, err
	}
	author, err := ref.ParseUserID(event.User)
	if err != nil {
		return Trigger{}, false, fmt.Errorf("bot: message author: %w", err)
	}
	return Trigger{Thread: thread, Author: author, Text: event.Text, Direct: direct, Reply: reply}, true, nil
}

func threadOf(channel, timestamp, threadTimestamp string) (ref.ThreadRef, bool, error) {
	root := threadTimestamp
	reply := root != "" && root != timestamp
	if root == "" {
		root = timestamp
	}
	thread, err := ref.NewThreadRef(channel, root)
	if err != nil {
		return ref.ThreadRef{}, false, fmt.Errorf("bot: event thread: %w", err)
	}
	return thread, reply, nil
}

// envelope is the part of an Events API payload courier reads that
// slackevents does not expose on every event type.
type envelope struct {
	Event struct {
		Files []struct {
			Mimetype   string `json:"mimetype"`
			URLPrivate string `json:"url_private"`
		} `json:"files"`
	} `json:"event"`
}

// ImagesFromPayload returns the URLs of image files attached to the
// event in a raw Events API payload. Malformed payloads yield none.
func ImagesFromPayload(payload json.RawMessage) []string {
	if len(payload) == 0 {
		return nil
	}
	var decoded envelope
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil
	}
	var images []string
	for _, file := range decoded.Event.Files {
		if strings.HasPrefix(file.Mimetype, "image/") && file.URLPrivate != "" {
			images = append(images, file.URLPrivate)
		}
	}
	return images
}
