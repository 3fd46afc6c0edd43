// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// Text marshaling lets IDs appear as plain strings in YAML config,
// JSON, and CBOR storage. Unmarshaling validates.

func (c ChannelID) MarshalText() ([]byte, error) { return []byte(c.id), nil }

func (c *ChannelID) UnmarshalText(data []byte) error {
	parsed, err := ParseChannelID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (u UserID) MarshalText() ([]byte, error) { return []byte(u.id), nil }

func (u *UserID) UnmarshalText(data []byte) error {
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func (t Timestamp) MarshalText() ([]byte, error) { return []byte(t.ts), nil }

func (t *Timestamp) UnmarshalText(data []byte) error {
	parsed, err := ParseTimestamp(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
