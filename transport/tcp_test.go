package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/felixgeelhaar/ipcheck-mcp/protocol"
)

func startTCP(t *testing.T, handler Handler) (*TCP, context.CancelFunc) {
	t.Helper()

	tr := NewTCP("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = tr.Serve(ctx, handler)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for tr.ListenAddr() == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return tr, cancel
}

func TestTCP(t *testing.T) {
	t.Run("addr reports configured address", func(t *testing.T) {
		tr := NewTCP("127.0.0.1:8000")
		if tr.Addr() != "127.0.0.1:8000" {
			t.Errorf("Addr() = %q, want 127.0.0.1:8000", tr.Addr())
		}
		if tr.ListenAddr() != "" {
			t.Errorf("ListenAddr() = %q before Serve, want empty", tr.ListenAddr())
		}
	})

	t.Run("round trips a request", func(t *testing.T) {
		handler := HandlerFunc(func(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "pong"), nil
		})

		tr, cancel := startTCP(t, handler)
		defer cancel()

		conn, err := net.Dial("tcp", tr.ListenAddr())
		if err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		defer conn.Close()

		reqBytes, _ := json.Marshal(protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  "ping",
		})
		if _, err := conn.Write(append(reqBytes, '\n')); err != nil {
			t.Fatalf("failed to write: %v", err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			t.Fatalf("failed to read response: %v", err)
		}

		var resp protocol.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Error != nil {
			t.Fatalf("unexpected error response: %+v", resp.Error)
		}
		if resp.Result != "pong" {
			t.Errorf("result = %v, want pong", resp.Result)
		}
	})

	t.Run("attaches remote addr and conn id to context", func(t *testing.T) {
		var remote, connID string
		handler := HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			remote = protocol.GetRequestMeta(ctx, protocol.MetaRemoteAddr)
			connID = protocol.GetRequestMeta(ctx, protocol.MetaConnID)
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		tr, cancel := startTCP(t, handler)
		defer cancel()

		conn, err := net.Dial("tcp", tr.ListenAddr())
		if err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		defer conn.Close()

		reqBytes, _ := json.Marshal(protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  "ping",
		})
		conn.Write(append(reqBytes, '\n'))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := bufio.NewReader(conn).ReadBytes('\n'); err != nil {
			t.Fatalf("failed to read response: %v", err)
		}

		if remote == "" {
			t.Error("expected remote addr in request meta")
		}
		if connID == "" {
			t.Error("expected conn id in request meta")
		}
	})

	t.Run("returns parse error for malformed line", func(t *testing.T) {
		handler := HandlerFunc(func(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
			t.Error("handler should not be called")
			return nil, nil
		})

		tr, cancel := startTCP(t, handler)
		defer cancel()

		conn, err := net.Dial("tcp", tr.ListenAddr())
		if err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		defer conn.Close()

		conn.Write([]byte("{not json\n"))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			t.Fatalf("failed to read response: %v", err)
		}

		var resp protocol.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != protocol.CodeParseError {
			t.Errorf("expected parse error, got %+v", resp.Error)
		}
	})

	t.Run("serves multiple connections", func(t *testing.T) {
		handler := HandlerFunc(func(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		tr, cancel := startTCP(t, handler)
		defer cancel()

		for i := 0; i < 3; i++ {
			conn, err := net.Dial("tcp", tr.ListenAddr())
			if err != nil {
				t.Fatalf("conn %d: failed to connect: %v", i, err)
			}

			reqBytes, _ := json.Marshal(protocol.Request{
				JSONRPC: "2.0",
				ID:      json.RawMessage(`1`),
				Method:  "ping",
			})
			conn.Write(append(reqBytes, '\n'))

			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, err := bufio.NewReader(conn).ReadBytes('\n'); err != nil {
				t.Fatalf("conn %d: failed to read response: %v", i, err)
			}
			conn.Close()
		}
	})

	t.Run("cancel stops the server", func(t *testing.T) {
		handler := HandlerFunc(func(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		tr := NewTCP("127.0.0.1:0")
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- tr.Serve(ctx, handler)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for tr.ListenAddr() == "" {
			if time.Now().After(deadline) {
				t.Fatal("server did not start listening")
			}
			time.Sleep(5 * time.Millisecond)
		}

		cancel()

		select {
		case err := <-done:
			if err != context.Canceled {
				t.Errorf("Serve returned %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
	})
}
