// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstream

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// EventType classifies agent events.
type EventType string

const (
	// EventTextDelta is an increment of response text.
	EventTextDelta EventType = "text_delta"

	// EventToolStart announces a tool invocation.
	EventToolStart EventType = "tool_start"

	// EventToolResult carries the outcome of a tool invocation.
	EventToolResult EventType = "tool_result"

	// EventFinal is the agent's final answer. Nothing follows it.
	EventFinal EventType = "final"

	// EventError reports an agent-side failure. Nothing follows it.
	EventError EventType = "error"
)

// Event is one agent event. Exactly one payload pointer is set, the one
// matching Type.
type Event struct {
	Type EventType

	// Text is set for EventTextDelta.
	Text *TextDelta

	// ToolStart is set for EventToolStart.
	ToolStart *ToolStart

	// ToolResult is set for EventToolResult.
	ToolResult *ToolResult

	// Final is set for EventFinal.
	Final *Final

	// Error is set for EventError.
	Error *Error
}

// TextDelta is appended to the response buffer.
type TextDelta struct {
	Text string
}

// ToolStart names the tool being invoked.
type ToolStart struct {
	Name string

	// Arguments is the tool input as the backend sent it, usually a
	// JSON object.
	Arguments json.RawMessage
}

// ToolResult reports what a tool returned. Name may be empty when the
// backend does not echo it.
type ToolResult struct {
	Name    string
	Result  string
	IsError bool
}

// Final carries the complete answer. Content may repeat text already
// streamed as deltas.
type Final struct {
	Content  string
	Metadata map[string]any
}

// Error is an agent-side failure description.
type Error struct {
	Detail string
}

// Text returns a text delta event.
func Text(text string) Event {
	return Event{Type: EventTextDelta, Text: &TextDelta{Text: text}}
}

// ToolCall returns a tool start event.
func ToolCall(name string, arguments json.RawMessage) Event {
	return Event{Type: EventToolStart, ToolStart: &ToolStart{Name: name, Arguments: arguments}}
}

// ToolOutput returns a tool result event.
func ToolOutput(name, result string, isError bool) Event {
	return Event{Type: EventToolResult, ToolResult: &ToolResult{Name: name, Result: result, IsError: isError}}
}

// FinalAnswer returns a final answer event.
func FinalAnswer(content string, metadata map[string]any) Event {
	return Event{Type: EventFinal, Final: &Final{Content: content, Metadata: metadata}}
}

// Failure returns an error event.
func Failure(detail string) Event {
	return Event{Type: EventError, Error: &Error{Detail: detail}}
}

// Validate checks that the payload matching Type is present.
func (e Event) Validate() error {
	var present bool
	switch e.Type {
	case EventTextDelta:
		present = e.Text != nil
	case EventToolStart:
		present = e.ToolStart != nil
	case EventToolResult:
		present = e.ToolResult != nil
	case EventFinal:
		present = e.Final != nil
	case EventError:
		present = e.Error != nil
	default:
		return fmt.Errorf("agentstream: unknown event type %q", e.Type)
	}
	if !present {
		return fmt.Errorf("agentstream: %s event has no payload", e.Type)
	}
	return nil
}

// PreviewChars bounds tool argument and result previews.
const PreviewChars = 300

// Preview shortens text to at most limit runes, marking the cut.
func Preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for offset := range text {
		if count == limit {
			return text[:offset] + "...[truncated]"
		}
		count++
	}
	return text
}
