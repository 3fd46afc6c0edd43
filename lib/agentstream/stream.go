// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// nextFunc yields the next event, or io.EOF when the stream is done.
type nextFunc func() (Event, error)

// Stream yields agent events in arrival order. It is not safe for
// concurrent use.
type Stream struct {
	next   nextFunc
	closer io.Closer
	done   bool
}

// NewStream wraps an iteration function and the resource backing it.
func NewStream(next func() (Event, error), closer io.Closer) *Stream {
	return &Stream{next: next, closer: closer}
}

// FromEvents returns a stream that yields events and then io.EOF.
func FromEvents(events ...Event) *Stream {
	index := 0
	return NewStream(func() (Event, error) {
		if index == len(events) {
			return Event{}, io.EOF
		}
		event := events[index]
		index++
		return event, nil
	}, nil)
}

// Next returns the next event. After io.EOF or any other error every
// later call returns io.EOF.
func (stream *Stream) Next() (Event, error) {
	if stream.done {
		return Event{}, io.EOF
	}
	event, err := stream.next()
	if err != nil {
		stream.done = true
		return Event{}, err
	}
	return event, nil
}

// Close releases the underlying response body.
func (stream *Stream) Close() error {
	stream.done = true
	if stream.closer != nil {
		return stream.closer.Close()
	}
	return nil
}

// wireEvent is one NDJSON line from the backend.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireTool struct {
	ToolName  string          `json:"tool_name"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
	Error     json.RawMessage `json:"error"`
}

func (tool wireTool) name() string {
	if tool.ToolName != "" {
		return tool.ToolName
	}
	return tool.Name
}

type wireFinal struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Decode reads NDJSON events from reader. closer, if non-nil, is
// closed by Stream.Close.
func Decode(reader io.Reader, closer io.Closer, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	buffered := bufio.NewReaderSize(reader, 64*1024)

	return NewStream(func() (Event, error) {
		for {
			line, readErr := buffered.ReadBytes('\n')
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				event, ok, err := decodeLine(line, logger)
				if err != nil {
					return Event{}, err
				}
				if ok {
					return event, nil
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					return Event{}, io.EOF
				}
				return Event{}, fmt.Errorf("agentstream: reading stream: %w", readErr)
			}
		}
	}, closer)
}

// decodeLine maps one wire line to an event. ok is false for lines
// that carry nothing for the renderer.
func decodeLine(line []byte, logger *slog.Logger) (Event, bool, error) {
	var wire wireEvent
	if err := json.Unmarshal(line, &wire); err != nil {
		return Event{}, false, fmt.Errorf("agentstream: decoding event line: %w", err)
	}

	switch wire.Type {
	case "llm_chunk":
		text, err := dataString(wire.Data)
		if err != nil {
			return Event{}, false, fmt.Errorf("agentstream: llm_chunk: %w", err)
		}
		if text == "" {
			return Event{}, false, nil
		}
		return Text(text), true, nil

	case "tool_call", "function_call":
		var tool wireTool
		if err := json.Unmarshal(wire.Data, &tool); err != nil {
			return Event{}, false, fmt.Errorf("agentstream: %s: %w", wire.Type, err)
		}
		return ToolCall(tool.name(), argumentsObject(tool.Arguments)), true, nil

	case "tool_result", "function_result":
		var tool wireTool
		if err := json.Unmarshal(wire.Data, &tool); err != nil {
			return Event{}, false, fmt.Errorf("agentstream: %s: %w", wire.Type, err)
		}
		return ToolOutput(tool.name(), flatten(tool.Result), false), true, nil

	case "tool_error", "function_error":
		var tool wireTool
		if err := json.Unmarshal(wire.Data, &tool); err != nil {
			return Event{}, false, fmt.Errorf("agentstream: %s: %w", wire.Type, err)
		}
		return ToolOutput(tool.name(), flatten(tool.Error), true), true, nil

	case "final":
		if text, err := dataString(wire.Data); err == nil {
			return FinalAnswer(text, nil), true, nil
		}
		var final wireFinal
		if err := json.Unmarshal(wire.Data, &final); err != nil {
			return Event{}, false, fmt.Errorf("agentstream: final: %w", err)
		}
		return FinalAnswer(final.Content, final.Metadata), true, nil

	case "error":
		if text, err := dataString(wire.Data); err == nil {
			return Failure(text), true, nil
		}
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(wire.Data, &detail); err != nil || detail.Message == "" {
			return Failure(flatten(wire.Data)), true, nil
		}
		return Failure(detail.Message), true, nil

	case "processing_error":
		// The backend could not serialize one of its events and keeps
		// streaming; whatever that event carried is gone.
		logger.Warn("agent dropped an event it could not serialize",
			"detail", Preview(flatten(wire.Data), PreviewChars),
		)
		return Event{}, false, nil

	default:
		logger.Debug("skipping agent stream line",
			"type", wire.Type,
			"data", Preview(string(wire.Data), PreviewChars),
		)
		return Event{}, false, nil
	}
}

func dataString(data json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return "", err
	}
	return text, nil
}

// argumentsObject normalizes tool arguments. Backends send either a
// JSON object or a string holding one.
func argumentsObject(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}")
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner)
		}
		quoted, _ := json.Marshal(map[string]string{"input": inner})
		return quoted
	}
	return raw
}

// flatten renders a JSON value as display text: strings unquoted,
// anything else compacted.
func flatten(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, raw); err != nil {
		return string(raw)
	}
	return compacted.String()
}
