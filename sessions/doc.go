// Package sessions defines the session abstraction shared by the MCP
// transport and the dispatcher. A session binds a client's sequence of
// messages to one protocol state instance: whether initialize has completed,
// which protocol version and client announced themselves, and, under the
// SSE strategy, the live push channel replies are written to.
//
// Layers & Roles
//
//	Transport -> resolves the session for every inbound message, echoes its id
//	Store     -> owns the session table, its eviction policy and push channels
//	Session   -> per-session view handed to the dispatcher and registries
//
// # Store Interface
//
// Store is injected into the transport rather than held as ambient state, so
// eviction policies (idle timeout, max-session cap) can change without
// touching dispatch logic. Resolve implements the lookup-or-create contract:
//
//   - a known id returns the existing session
//   - an unknown supplied id creates a new session under that same id
//   - an absent id creates a session under a fresh 128-bit random id
//
// # Lifetime
//
// Sessions holding a push channel are removed the instant the channel is
// detached (client disconnect or failed write). Sessions without one are
// reaped by the store's idle sweep.
//
// Implementations
//
//	memoryhost : process-local table; sessions are pinned to one instance
package sessions
