// Package ipcheck implements the public IP lookup behind the ipcheck tool
// and prompt.
//
// The lookup is one outbound GET to ifconfig.me: the text format fetches
// the bare endpoint, the json format fetches /all.json. The response body
// is returned verbatim. Failures are classified as invalid parameter,
// upstream error (status >= 400, carrying the status), transport error
// (carrying the cause), or internal error, and map onto the JSON-RPC error
// envelope via Error.Protocol.
//
// There is exactly one attempt per invocation, bounded by a 10 second
// timeout. No caching, no retries.
package ipcheck
