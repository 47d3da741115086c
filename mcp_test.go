package ipcheckmcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/ipcheck-mcp/protocol"
)

func newTestHandler(t *testing.T) *requestHandler {
	t.Helper()

	srv := NewServer(ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      "test",
		Capabilities: Capabilities{Tools: true, Prompts: true},
	})

	srv.Tool("echo").
		Description("Echoes its input").
		Handler(func(_ context.Context, input struct {
			Message string `json:"message"`
		}) (string, error) {
			return input.Message, nil
		})

	return newRequestHandler(srv)
}

func call(t *testing.T, h *requestHandler, method string, params any) (*protocol.Response, error) {
	t.Helper()

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("failed to marshal params: %v", err)
		}
		raw = data
	}

	return h.HandleRequest(context.Background(), &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
		Params:  raw,
	})
}

func TestRequestHandler(t *testing.T) {
	t.Run("initialize reports capabilities and version", func(t *testing.T) {
		h := newTestHandler(t)

		resp, err := call(t, h, protocol.MethodInitialize, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := resp.Result.(map[string]any)
		if result["protocolVersion"] != protocol.MCPVersion {
			t.Errorf("protocolVersion = %v, want %s", result["protocolVersion"], protocol.MCPVersion)
		}

		caps := result["capabilities"].(map[string]any)
		if _, ok := caps["tools"]; !ok {
			t.Error("expected tools capability")
		}
		if _, ok := caps["prompts"]; !ok {
			t.Error("expected prompts capability")
		}
	})

	t.Run("initialize omits unregistered capabilities", func(t *testing.T) {
		srv := NewServer(ServerInfo{
			Name:         "bare",
			Version:      "test",
			Capabilities: Capabilities{Tools: true},
		})
		h := newRequestHandler(srv)

		resp, err := call(t, h, protocol.MethodInitialize, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		caps := resp.Result.(map[string]any)["capabilities"].(map[string]any)
		if _, ok := caps["prompts"]; ok {
			t.Error("prompts capability should be absent")
		}
	})

	t.Run("initialized notification produces no response", func(t *testing.T) {
		h := newTestHandler(t)

		resp, err := h.HandleRequest(context.Background(), &protocol.Request{
			JSONRPC: "2.0",
			Method:  protocol.MethodInitialized,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp != nil {
			t.Errorf("expected nil response, got %+v", resp)
		}
	})

	t.Run("tools list includes registered tool", func(t *testing.T) {
		h := newTestHandler(t)

		resp, err := call(t, h, protocol.MethodToolsList, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tools := resp.Result.(map[string]any)["tools"].([]map[string]any)
		if len(tools) != 1 {
			t.Fatalf("expected 1 tool, got %d", len(tools))
		}
		if tools[0]["name"] != "echo" {
			t.Errorf("name = %v, want echo", tools[0]["name"])
		}
		if tools[0]["inputSchema"] == nil {
			t.Error("expected inputSchema")
		}
	})

	t.Run("tools call wraps result as text content", func(t *testing.T) {
		h := newTestHandler(t)

		resp, err := call(t, h, protocol.MethodToolsCall, map[string]any{
			"name":      "echo",
			"arguments": map[string]any{"message": "hi"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content := resp.Result.(map[string]any)["content"].([]map[string]any)
		if len(content) != 1 {
			t.Fatalf("expected 1 content item, got %d", len(content))
		}
		if content[0]["type"] != "text" {
			t.Errorf("type = %v, want text", content[0]["type"])
		}
		if content[0]["text"] != "hi" {
			t.Errorf("text = %v, want hi", content[0]["text"])
		}
	})

	t.Run("tools call with unknown tool fails", func(t *testing.T) {
		h := newTestHandler(t)

		_, err := call(t, h, protocol.MethodToolsCall, map[string]any{"name": "missing"})
		if err == nil {
			t.Fatal("expected error")
		}

		var perr *protocol.Error
		if !errors.As(err, &perr) {
			t.Fatalf("expected protocol error, got %T", err)
		}
		if perr.Code != protocol.CodeNotFound {
			t.Errorf("code = %d, want %d", perr.Code, protocol.CodeNotFound)
		}
	})

	t.Run("prompts get with unknown prompt fails", func(t *testing.T) {
		h := newTestHandler(t)

		_, err := call(t, h, protocol.MethodPromptsGet, map[string]any{"name": "missing"})
		if err == nil {
			t.Fatal("expected error")
		}

		var perr *protocol.Error
		if !errors.As(err, &perr) {
			t.Fatalf("expected protocol error, got %T", err)
		}
		if perr.Code != protocol.CodeNotFound {
			t.Errorf("code = %d, want %d", perr.Code, protocol.CodeNotFound)
		}
	})

	t.Run("ping returns empty object", func(t *testing.T) {
		h := newTestHandler(t)

		resp, err := call(t, h, protocol.MethodPing, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Result == nil {
			t.Error("expected result")
		}
	})

	t.Run("unknown method fails with method not found", func(t *testing.T) {
		h := newTestHandler(t)

		_, err := call(t, h, "bogus/method", nil)
		if err == nil {
			t.Fatal("expected error")
		}

		var perr *protocol.Error
		if !errors.As(err, &perr) {
			t.Fatalf("expected protocol error, got %T", err)
		}
		if perr.Code != protocol.CodeMethodNotFound {
			t.Errorf("code = %d, want %d", perr.Code, protocol.CodeMethodNotFound)
		}
	})

	t.Run("middleware wraps dispatch", func(t *testing.T) {
		srv := NewServer(ServerInfo{Name: "mw", Version: "test"})

		var seen []string
		h := newRequestHandler(srv, WithMiddleware(func(next MiddlewareHandlerFunc) MiddlewareHandlerFunc {
			return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
				seen = append(seen, req.Method)
				return next(ctx, req)
			}
		}))

		if _, err := call(t, h, protocol.MethodPing, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 1 || seen[0] != protocol.MethodPing {
			t.Errorf("seen = %v, want [%s]", seen, protocol.MethodPing)
		}
	})
}
