// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Courier answers Slack mentions with a streamed agent response.
//
// It connects to Slack over Socket Mode, starts a turn for every
// mention, direct message, or reply in a thread it is part of, and
// renders the agent backend's NDJSON event stream into the thread as
// the response arrives: prose and reasoning in place, one message per
// tool invocation.
//
// Usage:
//
//	courier [--config courier.yaml] [--verbose]
//
// Without --config the file named by COURIER_CONFIG is read. Slack
// tokens are read from the sources configured under slack.bot_token and
// slack.app_token.
package main
