// Package streaminghttp binds the JSON-RPC dispatcher to HTTP. It mounts as a
// standard net/http handler and serves one MCP endpoint under one of three
// delivery strategies:
//
//   - StrategySync: one message per POST, the reply is the response body.
//   - StrategyBatch: a POST may carry a JSON array; replies are collected in
//     input order and returned as a single object or an array.
//   - StrategySSE: a long-lived GET opens a push channel, POSTs are
//     acknowledged with 202 and their replies are pushed as `message` events.
//
// Every POST goes through the same pipeline: content type check, body size
// cap, parse, session resolution. The resolved session id is echoed in the
// Mcp-Session-Id header of every response so clients can pin to it.
//
// # Construction
//
//	h := streaminghttp.New(store, eng,
//	    streaminghttp.WithStrategy(streaminghttp.StrategySSE),
//	    streaminghttp.WithLogger(log),
//	)
//	r.Handle("/mcp", h)
//
// # Error Handling
//
// Rejections that happen before a JSON-RPC exchange is possible (wrong verb,
// wrong content type, oversized body) are plain JSON bodies of the form
// {"error": "<reason>"}. Everything after parsing is a JSON-RPC envelope.
//
// # Shutdown
//
// Replies under StrategySSE are produced after the POST has returned. Call
// Shutdown before stopping the HTTP server so those dispatches finish and
// open streams are released.
package streaminghttp
