// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstream

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func collect(t *testing.T, stream *Stream) ([]Event, error) {
	t.Helper()
	var events []Event
	for {
		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, event)
	}
}

func TestDecodeWireTypes(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"llm_chunk","data":"Let me "}`,
		`{"type":"llm_chunk","data":"check."}`,
		``,
		`{"type":"tool_call","data":{"tool_name":"lookup","arguments":{"q":"x"}}}`,
		`{"type":"tool_result","data":{"tool_name":"lookup","result":"42"}}`,
		`{"type":"function_call","data":{"tool_name":"search","arguments":"{\"query\":\"go\"}"}}`,
		`{"type":"function_error","data":{"tool_name":"search","error":{"code":503}}}`,
		`{"type":"processing_error","data":"ignored"}`,
		`{"type":"llm_chunk","data":""}`,
		`{"type":"final","data":{"content":"The answer is 42.","metadata":{"model":"m1"}}}`,
	}, "\n")

	events, err := collect(t, Decode(strings.NewReader(input), nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Event{
		Text("Let me "),
		Text("check."),
		ToolCall("lookup", []byte(`{"q":"x"}`)),
		ToolOutput("lookup", "42", false),
		ToolCall("search", []byte(`{"query":"go"}`)),
		ToolOutput("search", `{"code":503}`, true),
		FinalAnswer("The answer is 42.", map[string]any{"model": "m1"}),
	}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events:\n got %#v\nwant %#v", events, want)
	}
	for _, event := range events {
		if err := event.Validate(); err != nil {
			t.Errorf("Validate(%s): %v", event.Type, err)
		}
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: `{"type":"error","data":"model overloaded"}`, want: "model overloaded"},
		{line: `{"type":"error","data":{"message":"quota"}}`, want: "quota"},
		{line: `{"type":"error","data":{"code":7}}`, want: `{"code":7}`},
	}
	for _, test := range tests {
		events, err := collect(t, Decode(strings.NewReader(test.line+"\n"), nil, nil))
		if err != nil {
			t.Fatalf("%s: %v", test.line, err)
		}
		if len(events) != 1 || events[0].Type != EventError || events[0].Error.Detail != test.want {
			t.Errorf("%s: got %#v", test.line, events)
		}
	}
}

func TestDecodeFinalAsString(t *testing.T) {
	events, err := collect(t, Decode(strings.NewReader(`{"type":"final","data":"done"}`), nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(events, []Event{FinalAnswer("done", nil)}) {
		t.Errorf("got %#v", events)
	}
}

func TestDecodeMalformedLine(t *testing.T) {
	stream := Decode(strings.NewReader("{\"type\":\"llm_chunk\",\"data\":\"ok\"}\nnot json\n"), nil, nil)
	if _, err := stream.Next(); err != nil {
		t.Fatalf("first event: %v", err)
	}
	_, err := stream.Next()
	if err == nil || !strings.Contains(err.Error(), "decoding event line") {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after error = %v, want io.EOF", err)
	}
}

func TestDecodeProcessingErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	input := `{"type":"processing_error","data":"Failed to process event: bad bytes"}` + "\n" +
		`{"type":"llm_chunk","data":"still here"}` + "\n"

	events, err := collect(t, Decode(strings.NewReader(input), nil, logger))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if want := []Event{Text("still here")}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %#v, want %#v", events, want)
	}
	if line := logs.String(); !strings.Contains(line, "level=WARN") || !strings.Contains(line, "bad bytes") {
		t.Errorf("log = %q", line)
	}
}

type truncatedReader struct {
	data []byte
}

func (reader *truncatedReader) Read(buffer []byte) (int, error) {
	if len(reader.data) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(buffer, reader.data)
	reader.data = reader.data[n:]
	return n, nil
}

func TestDecodeReadErrorIsWrapped(t *testing.T) {
	stream := Decode(&truncatedReader{data: []byte("{\"type\":\"llm_chunk\",\"data\":\"partial\"}\n")}, nil, nil)
	if _, err := stream.Next(); err != nil {
		t.Fatalf("first event: %v", err)
	}
	_, err := stream.Next()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want wrapped io.ErrUnexpectedEOF", err)
	}
}

type closeRecorder struct{ closed bool }

func (recorder *closeRecorder) Close() error {
	recorder.closed = true
	return nil
}

func TestStreamClose(t *testing.T) {
	recorder := &closeRecorder{}
	stream := Decode(strings.NewReader(`{"type":"llm_chunk","data":"x"}`), recorder, nil)
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}
	if !recorder.closed {
		t.Error("body not closed")
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}

func TestFromEvents(t *testing.T) {
	events, err := collect(t, FromEvents(Text("a"), Failure("boom")))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[1].Error.Detail != "boom" {
		t.Errorf("got %#v", events)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 300); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	long := strings.Repeat("é", 301)
	got := Preview(long, 300)
	if got != strings.Repeat("é", 300)+"...[truncated]" {
		t.Errorf("Preview(long) has %d bytes", len(got))
	}
}

func TestValidateRejectsMissingPayload(t *testing.T) {
	if err := (Event{Type: EventToolStart}).Validate(); err == nil {
		t.Error("tool start without payload accepted")
	}
	if err := (Event{Type: "bogus"}).Validate(); err == nil {
		t.Error("unknown type accepted")
	}
}
