// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentstream is the client side of the agent backend.
//
// The backend accepts POST /generate with the user's prompt and the
// thread history, and answers with newline-delimited JSON, one
// {"type": ..., "data": ...} object per line. [Decode] maps those
// lines onto the typed [Event] model the renderer consumes:
//
//	llm_chunk                        -> text delta
//	tool_call / function_call        -> tool invocation start
//	tool_result / function_result    -> tool invocation result
//	tool_error / function_error      -> tool invocation result, IsError
//	final                            -> final answer
//	error                            -> error
//
// Unknown line types are logged at debug level and skipped. A [Stream]
// yields events through [Stream.Next] and returns io.EOF once the
// backend closes the response.
package agentstream
