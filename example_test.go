package ipcheckmcp_test

import (
	"context"
	"log"

	ipcheckmcp "github.com/felixgeelhaar/ipcheck-mcp"
	"github.com/felixgeelhaar/ipcheck-mcp/ipcheck"
	"github.com/felixgeelhaar/ipcheck-mcp/middleware"
)

// Serving the ipcheck tool over stdio, the transport most MCP hosts expect.
func Example() {
	srv := ipcheckmcp.NewServer(ipcheckmcp.ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      "1.0.0",
		Capabilities: ipcheckmcp.Capabilities{Tools: true, Prompts: true},
	})

	if err := ipcheck.Register(srv, ipcheck.NewClient()); err != nil {
		log.Fatal(err)
	}

	if err := ipcheckmcp.ServeStdio(context.Background(), srv); err != nil {
		log.Fatal(err)
	}
}

// Serving on a TCP socket with a custom user agent and request logging.
func Example_tcp() {
	srv := ipcheckmcp.NewServer(ipcheckmcp.ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      "1.0.0",
		Capabilities: ipcheckmcp.Capabilities{Tools: true, Prompts: true},
	})

	client := ipcheck.NewClient(ipcheck.WithUserAgent("my-deployment/1.0"))
	if err := ipcheck.Register(srv, client); err != nil {
		log.Fatal(err)
	}

	err := ipcheckmcp.ServeTCP(context.Background(), srv, "127.0.0.1:8000",
		ipcheckmcp.WithMiddleware(ipcheckmcp.DefaultMiddleware(middleware.NopLogger{})...))
	if err != nil {
		log.Fatal(err)
	}
}
