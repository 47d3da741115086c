// Package middleware provides request/response middleware for the ipcheck
// MCP server.
//
// Middleware follows the standard pattern where each middleware wraps the
// next handler in the chain, allowing pre- and post-processing of requests.
//
// # Basic Usage
//
//	chain := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
//	handler := chain(baseHandler)
//
// # Available Middleware
//
//   - Recover: Catches panics and converts them to internal errors
//   - RequestID: Injects unique request IDs into the context
//   - Timeout: Enforces request deadlines
//   - Logging: Logs request details and timing
//   - RateLimit: Token-bucket limiting (guards the outbound IP lookup)
//   - OTel: OpenTelemetry tracing and metrics
//
// DefaultStack(logger) returns Recover + RequestID + Logging, which is
// what the ipcheck-mcp binary installs by default.
package middleware
