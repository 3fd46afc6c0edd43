// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Source names where a secret lives. Path wins over Env when both are
// set. A Path of "-" reads one line from stdin.
type Source struct {
	Path string `yaml:"path"`
	Env  string `yaml:"env"`
}

// IsZero reports whether the source names nothing.
func (s Source) IsZero() bool { return s.Path == "" && s.Env == "" }

func (s Source) String() string {
	switch {
	case s.Path == "-":
		return "stdin"
	case s.Path != "":
		return "file " + s.Path
	case s.Env != "":
		return "$" + s.Env
	default:
		return "<unset>"
	}
}

// Load reads the secret named by source. Surrounding whitespace is
// trimmed and an empty secret is an error.
func Load(source Source) (*Buffer, error) {
	switch {
	case source.Path == "-":
		return readLine(os.Stdin)
	case source.Path != "":
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return nil, fmt.Errorf("secret: reading %s: %w", source.Path, err)
		}
		return fromRaw(data, source)
	case source.Env != "":
		value, ok := os.LookupEnv(source.Env)
		if !ok {
			return nil, fmt.Errorf("secret: environment variable %s is not set", source.Env)
		}
		return fromRaw([]byte(value), source)
	default:
		return nil, fmt.Errorf("secret: no path or environment variable configured")
	}
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading stdin: %w", err)
		}
		return nil, fmt.Errorf("secret: stdin is empty")
	}
	return fromRaw(scanner.Bytes(), Source{Path: "-"})
}

func fromRaw(data []byte, source Source) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", source)
	}
	return NewFromBytes(trimmed)
}
