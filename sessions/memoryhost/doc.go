// Package memoryhost provides the in-memory sessions.Store used by the
// server. All state is ephemeral and discarded on process exit; a session is
// pinned to the process that created it.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Eviction          : idle sweep every TTL/4, push-channel detach, optional cap
//	Concurrency       : safe (single mutex over the table)
//
// Example:
//
//	store := memoryhost.New(memoryhost.WithIdleTTL(30 * time.Minute))
//	defer store.Close()
//	// transport wires this store into streaminghttp.New(...)
package memoryhost
