// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstream

import "encoding/json"

// Role is the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one prior exchange in the thread.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the user's message for this turn. Images are URLs the
// backend can fetch or inline data URLs.
type Prompt struct {
	Text   string
	Images []string
}

type promptPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// MarshalJSON encodes a text-only prompt as a plain string and a prompt
// with images as a list of content parts.
func (p Prompt) MarshalJSON() ([]byte, error) {
	if len(p.Images) == 0 {
		return json.Marshal(p.Text)
	}
	parts := make([]promptPart, 0, len(p.Images)+1)
	if p.Text != "" {
		parts = append(parts, promptPart{Type: "text", Text: p.Text})
	}
	for _, image := range p.Images {
		parts = append(parts, promptPart{Type: "input_image", ImageURL: image})
	}
	return json.Marshal(parts)
}

// Request is the body of POST /generate.
type Request struct {
	Prompt  Prompt    `json:"prompt"`
	History []Message `json:"history"`
}

// withoutSystem drops system messages, which the backend supplies
// itself.
func withoutSystem(history []Message) []Message {
	filtered := make([]Message, 0, len(history))
	for _, message := range history {
		if message.Role != RoleSystem {
			filtered = append(filtered, message)
		}
	}
	return filtered
}
