package ipcheck

import (
	"fmt"

	"github.com/felixgeelhaar/ipcheck-mcp/protocol"
)

// Kind classifies lookup failures.
type Kind string

const (
	// KindInvalidParameter means the caller supplied a bad format value.
	// The lookup fails before any network activity.
	KindInvalidParameter Kind = "invalid_parameter"

	// KindUpstreamError means the upstream service answered with an error
	// status (>= 400). The status code is carried on the error.
	KindUpstreamError Kind = "upstream_error"

	// KindTransportError means the outbound call could not complete: DNS
	// failure, connection refused, timeout, or TLS failure.
	KindTransportError Kind = "transport_error"

	// KindInternalError covers anything unanticipated.
	KindInternalError Kind = "internal_error"
)

// Error is a classified lookup failure. Every failure path of Client.Lookup
// returns one of these; none are retried or swallowed.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status, set for upstream errors
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstreamError:
		return fmt.Sprintf("ipcheck: %s: status %d", e.Message, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("ipcheck: %s: %v", e.Message, e.Cause)
	default:
		return "ipcheck: " + e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Protocol maps the lookup error onto the JSON-RPC error envelope.
// Invalid parameters become invalid-params errors; everything else is an
// internal error with the kind, status, and cause preserved in the data
// field so callers can still distinguish them.
func (e *Error) Protocol() *protocol.Error {
	data := map[string]any{"kind": string(e.Kind)}
	if e.Status != 0 {
		data["status"] = e.Status
	}
	if e.Cause != nil {
		data["cause"] = e.Cause.Error()
	}

	if e.Kind == KindInvalidParameter {
		return protocol.NewInvalidParams(e.Message).WithData(data)
	}
	return protocol.NewInternalError(e.Error()).WithData(data)
}

func invalidParameter(msg string) *Error {
	return &Error{Kind: KindInvalidParameter, Message: msg}
}

func upstreamError(status int) *Error {
	return &Error{Kind: KindUpstreamError, Message: "upstream returned error status", Status: status}
}

func transportError(cause error) *Error {
	return &Error{Kind: KindTransportError, Message: "request failed", Cause: cause}
}
