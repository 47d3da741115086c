// Command ipcheck-mcp runs the ipcheck MCP server.
//
// By default it speaks MCP over stdio, the transport editor and agent
// integrations expect. The --transport flag selects tcp, http, or ws
// instead, binding to --addr (or IPCHECK_HOST/IPCHECK_PORT from the
// environment).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ipcheckmcp "github.com/felixgeelhaar/ipcheck-mcp"
	"github.com/felixgeelhaar/ipcheck-mcp/ipcheck"
	"github.com/felixgeelhaar/ipcheck-mcp/middleware"
)

const version = "1.0.0"

var (
	flagTransport string
	flagAddr      string
	flagUserAgent string
	flagTimeout   time.Duration
	flagDebug     bool
)

func main() {
	root := &cobra.Command{
		Use:           "ipcheck-mcp",
		Short:         "MCP server that reports the host's public IP via ifconfig.me",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	root.Flags().StringVarP(&flagTransport, "transport", "t", "stdio", "transport to serve on: stdio, tcp, http, or ws")
	root.Flags().StringVar(&flagAddr, "addr", "", "bind address for network transports (default from IPCHECK_HOST/IPCHECK_PORT)")
	root.Flags().StringVar(&flagUserAgent, "user-agent", "", "User-Agent header sent upstream (default from IPCHECK_USER_AGENT)")
	root.Flags().DurationVar(&flagTimeout, "timeout", ipcheck.DefaultTimeout, "upstream request timeout")
	root.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := ipcheck.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Logs go to stderr; stdout belongs to the stdio transport.
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	userAgent := cfg.UserAgent
	if flagUserAgent != "" {
		userAgent = flagUserAgent
	}

	client := ipcheck.NewClient(
		ipcheck.WithUserAgent(userAgent),
		ipcheck.WithTimeout(flagTimeout),
		ipcheck.WithClientLogger(logger),
	)

	srv := ipcheckmcp.NewServer(ipcheckmcp.ServerInfo{
		Name:         "ipcheck-mcp",
		Version:      version,
		Capabilities: ipcheckmcp.Capabilities{Tools: true, Prompts: true},
	})
	if err := ipcheck.Register(srv, client); err != nil {
		return fmt.Errorf("failed to register ipcheck: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	addr := flagAddr
	if addr == "" {
		addr = cfg.Addr()
	}

	serveOpts := []ipcheckmcp.ServeOption{
		ipcheckmcp.WithLogger(middleware.NewSlogLogger(logger)),
	}

	switch flagTransport {
	case "stdio":
		logger.Info("serving", "transport", "stdio")
		err = ipcheckmcp.ServeStdio(ctx, srv, serveOpts...)
	case "tcp":
		logger.Info("serving", "transport", "tcp", "addr", addr)
		err = ipcheckmcp.ServeTCP(ctx, srv, addr, serveOpts...)
	case "http":
		logger.Info("serving", "transport", "http", "addr", addr)
		err = ipcheckmcp.ServeHTTP(ctx, srv, addr, nil, serveOpts...)
	case "ws":
		logger.Info("serving", "transport", "ws", "addr", addr)
		err = ipcheckmcp.ServeWebSocket(ctx, srv, addr, nil, serveOpts...)
	default:
		return fmt.Errorf("unknown transport %q: want stdio, tcp, http, or ws", flagTransport)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
