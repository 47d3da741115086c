// Package transport provides the communication layers for the ipcheck MCP
// server.
//
// Four transports are available:
//
//   - Stdio: newline-delimited JSON over stdin/stdout, the standard MCP
//     transport for editor and agent integrations
//   - TCP: the same newline-delimited framing over a plain TCP socket,
//     for clients that connect over the network
//   - HTTP: JSON-RPC over POST /mcp with an SSE stream at /mcp/sse
//   - WebSocket: bidirectional JSON-RPC over a WebSocket connection
//
// All transports implement the Transport interface and deliver requests to
// a Handler. Network transports attach the client's remote address to the
// request context via protocol.RequestMeta so middleware can log it.
package transport
