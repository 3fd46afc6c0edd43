// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is courier's CBOR configuration.
//
// JSON is spoken on the wire to Slack and the agent backend. CBOR is
// used for what courier stores itself, currently the per-turn metadata
// blob in the history database. Encoding is Core Deterministic
// (RFC 8949 §4.2) so equal values produce equal bytes. Decoding into
// any produces map[string]any, matching encoding/json.
//
// Types used only in storage carry `cbor` tags. Types that also cross
// a JSON boundary carry `json` tags, which fxamacker/cbor reads as a
// fallback.
package codec
