package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/ipcheck-mcp/protocol"
)

// TCP implements MCP transport over a plain TCP socket. Each connection
// carries newline-delimited JSON-RPC messages, one per line, the same
// framing as the stdio transport. Connections are served concurrently.
type TCP struct {
	addr     string
	listener net.Listener

	mu    sync.RWMutex
	conns map[string]*tcpConn
}

type tcpConn struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

// TCPOption configures a TCP transport.
type TCPOption func(*TCP)

// NewTCP creates a TCP transport listening on addr, e.g. "127.0.0.1:8000".
func NewTCP(addr string, opts ...TCPOption) *TCP {
	t := &TCP{
		addr:  addr,
		conns: make(map[string]*tcpConn),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Addr returns the configured listen address.
func (t *TCP) Addr() string {
	return t.addr
}

// ListenAddr returns the actual listener address, useful when the
// configured port is 0. Returns empty string before Serve is called.
func (t *TCP) ListenAddr() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// Serve starts accepting connections, blocking until ctx is canceled or the
// listener fails.
func (t *TCP) Serve(ctx context.Context, handler Handler) error {
	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		listener.Close()
		t.closeAllConns()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			// Accept fails with net.ErrClosed once ctx cancels the listener.
			wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		tc := &tcpConn{
			id:   uuid.NewString(),
			conn: conn,
		}

		t.mu.Lock()
		t.conns[tc.id] = tc
		t.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			t.serveConn(ctx, handler, tc)
		}()
	}
}

func (t *TCP) serveConn(ctx context.Context, handler Handler, tc *tcpConn) {
	defer func() {
		tc.conn.Close()
		t.mu.Lock()
		delete(t.conns, tc.id)
		t.mu.Unlock()
	}()

	meta := protocol.RequestMeta{
		protocol.MetaRemoteAddr: tc.conn.RemoteAddr().String(),
		protocol.MetaConnID:     tc.id,
	}
	connCtx := protocol.ContextWithRequestMeta(ctx, meta)
	connCtx = ContextWithNotificationSender(connCtx, tc)

	scanner := bufio.NewScanner(tc.conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			tc.write(protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error())))
			continue
		}

		resp, err := handler.HandleRequest(connCtx, &req)

		if out := respond(&req, resp, err); out != nil {
			tc.write(out)
		}
	}
}

func (t *TCP) closeAllConns() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tc := range t.conns {
		tc.conn.Close()
	}
}

// SendNotification sends a JSON-RPC notification to this connection's client.
func (c *tcpConn) SendNotification(method string, params any) error {
	paramsData, err := json.Marshal(params)
	if err != nil {
		return err
	}

	notif := Notification{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  method,
		Params:  paramsData,
	}

	return c.write(notif)
}

func (c *tcpConn) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write(data); err != nil {
		return err
	}
	_, err = c.conn.Write([]byte("\n"))
	return err
}
