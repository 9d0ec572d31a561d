// Package mcp holds the Model Context Protocol wire types used by the
// TuDescuento adapter: method names, the initialize handshake, and the
// tools, prompts and resources payloads.
//
// Only the server-side subset needed to expose static catalogs is modelled;
// sampling, elicitation and roots flows are not part of this server.
package mcp
