// Package e2e exercises the ipcheck server end to end: a full stdio session
// against a server whose upstream is stubbed, covering the handshake, tool
// and prompt flows, and the error envelope on the wire.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	ipcheckmcp "github.com/felixgeelhaar/ipcheck-mcp"
	"github.com/felixgeelhaar/ipcheck-mcp/ipcheck"
	"github.com/felixgeelhaar/ipcheck-mcp/protocol"
	"github.com/felixgeelhaar/ipcheck-mcp/transport"
)

type fakeUpstream struct {
	calls int
}

func (f *fakeUpstream) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	body := "203.0.113.5"
	if strings.HasSuffix(req.URL.Path, "/all.json") {
		body = `{"ip_addr":"203.0.113.5"}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// runSession feeds newline-delimited requests through a real stdio transport
// and returns the responses in order.
func runSession(t *testing.T, requests []*protocol.Request) []*protocol.Response {
	t.Helper()

	srv := ipcheckmcp.NewServer(ipcheckmcp.ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      "e2e",
		Capabilities: ipcheckmcp.Capabilities{Tools: true, Prompts: true},
	})

	client := ipcheck.NewClient(ipcheck.WithHTTPTransport(&fakeUpstream{}))
	if err := ipcheck.Register(srv, client); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	in := &bytes.Buffer{}
	for _, req := range requests {
		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		in.Write(append(data, '\n'))
	}
	out := &bytes.Buffer{}

	tr := transport.NewStdio(transport.WithStdin(in), transport.WithStdout(out))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tr.Serve(ctx, ipcheckmcp.NewHandler(srv)); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var responses []*protocol.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp protocol.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("failed to parse response %q: %v", line, err)
		}
		responses = append(responses, &resp)
	}
	return responses
}

func req(id, method string, params any) *protocol.Request {
	r := &protocol.Request{JSONRPC: "2.0", Method: method}
	if id != "" {
		r.ID = json.RawMessage(id)
	}
	if params != nil {
		data, _ := json.Marshal(params)
		r.Params = data
	}
	return r
}

func TestStdioSession(t *testing.T) {
	responses := runSession(t, []*protocol.Request{
		req("1", protocol.MethodInitialize, map[string]any{
			"protocolVersion": protocol.MCPVersion,
			"clientInfo":      map[string]any{"name": "e2e", "version": "1.0.0"},
		}),
		req("", protocol.MethodInitialized, nil),
		req("2", protocol.MethodToolsList, nil),
		req("3", protocol.MethodToolsCall, map[string]any{
			"name":      "ipcheck",
			"arguments": map[string]any{"format": "text"},
		}),
		req("4", protocol.MethodToolsCall, map[string]any{
			"name":      "ipcheck",
			"arguments": map[string]any{"format": "json"},
		}),
		req("5", protocol.MethodToolsCall, map[string]any{
			"name":      "ipcheck",
			"arguments": map[string]any{"format": "xml"},
		}),
		req("6", protocol.MethodPromptsGet, map[string]any{"name": "ipcheck"}),
		req("7", protocol.MethodPing, nil),
	})

	// The initialized notification produces no response line.
	if len(responses) != 7 {
		t.Fatalf("expected 7 responses, got %d", len(responses))
	}

	t.Run("initialize", func(t *testing.T) {
		resp := responses[0]
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		result := resp.Result.(map[string]any)
		if result["protocolVersion"] != protocol.MCPVersion {
			t.Errorf("protocolVersion = %v, want %s", result["protocolVersion"], protocol.MCPVersion)
		}
	})

	t.Run("tools list names ipcheck", func(t *testing.T) {
		resp := responses[1]
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		tools := resp.Result.(map[string]any)["tools"].([]any)
		if len(tools) != 1 {
			t.Fatalf("expected 1 tool, got %d", len(tools))
		}
		if tools[0].(map[string]any)["name"] != "ipcheck" {
			t.Errorf("tool name = %v, want ipcheck", tools[0].(map[string]any)["name"])
		}
	})

	t.Run("text lookup", func(t *testing.T) {
		resp := responses[2]
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		text := contentText(t, resp)
		want := "Server IP information from ifconfig.me:\n203.0.113.5"
		if text != want {
			t.Errorf("text = %q, want %q", text, want)
		}
	})

	t.Run("json lookup", func(t *testing.T) {
		resp := responses[3]
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		text := contentText(t, resp)
		if !strings.Contains(text, `"ip_addr"`) {
			t.Errorf("text = %q, want json body", text)
		}
	})

	t.Run("invalid format is rejected on the wire", func(t *testing.T) {
		resp := responses[4]
		if resp.Error == nil {
			t.Fatal("expected error response")
		}
		if resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
		}
	})

	t.Run("prompt reports the address", func(t *testing.T) {
		resp := responses[5]
		if resp.Error != nil {
			t.Fatalf("unexpected error: %+v", resp.Error)
		}
		messages := resp.Result.(map[string]any)["messages"].([]any)
		if len(messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(messages))
		}
		content := messages[0].(map[string]any)["content"].(map[string]any)
		if !strings.Contains(content["text"].(string), "203.0.113.5") {
			t.Errorf("text = %v, want the IP address", content["text"])
		}
	})

	t.Run("ping", func(t *testing.T) {
		if responses[6].Error != nil {
			t.Errorf("unexpected error: %+v", responses[6].Error)
		}
	})
}

func TestStdioSessionUpstreamDown(t *testing.T) {
	srv := ipcheckmcp.NewServer(ipcheckmcp.ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      "e2e",
		Capabilities: ipcheckmcp.Capabilities{Tools: true, Prompts: true},
	})

	down := func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("unavailable")),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	}
	client := ipcheck.NewClient(ipcheck.WithHTTPTransport(roundTripFunc(down)))
	if err := ipcheck.Register(srv, client); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	in := &bytes.Buffer{}
	for _, r := range []*protocol.Request{
		req("1", protocol.MethodToolsCall, map[string]any{"name": "ipcheck", "arguments": map[string]any{}}),
		req("2", protocol.MethodPromptsGet, map[string]any{"name": "ipcheck"}),
	} {
		data, _ := json.Marshal(r)
		in.Write(append(data, '\n'))
	}
	out := &bytes.Buffer{}

	tr := transport.NewStdio(transport.WithStdin(in), transport.WithStdout(out))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Serve(ctx, ipcheckmcp.NewHandler(srv)); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(lines))
	}

	t.Run("tool call fails with upstream kind in data", func(t *testing.T) {
		var resp protocol.Response
		if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if resp.Error == nil {
			t.Fatal("expected error response")
		}
		if resp.Error.Code != protocol.CodeInternalError {
			t.Errorf("code = %d, want %d", resp.Error.Code, protocol.CodeInternalError)
		}

		data, ok := resp.Error.Data.(map[string]any)
		if !ok {
			t.Fatalf("data is %T, want map", resp.Error.Data)
		}
		if data["kind"] != "upstream_error" {
			t.Errorf("kind = %v, want upstream_error", data["kind"])
		}
		// JSON numbers decode as float64.
		if data["status"] != float64(503) {
			t.Errorf("status = %v, want 503", data["status"])
		}
	})

	t.Run("prompt degrades softly", func(t *testing.T) {
		var resp protocol.Response
		if err := json.Unmarshal([]byte(lines[1]), &resp); err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if resp.Error != nil {
			t.Fatalf("prompt should not fail hard, got %+v", resp.Error)
		}

		messages := resp.Result.(map[string]any)["messages"].([]any)
		content := messages[0].(map[string]any)["content"].(map[string]any)
		if !strings.Contains(content["text"].(string), "Failed to fetch IP address") {
			t.Errorf("text = %v, want failure message", content["text"])
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func contentText(t *testing.T, resp *protocol.Response) string {
	t.Helper()

	content := resp.Result.(map[string]any)["content"].([]any)
	if len(content) == 0 {
		t.Fatal("empty content")
	}
	text, _ := content[0].(map[string]any)["text"].(string)
	return text
}
