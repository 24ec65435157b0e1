package server

import (
	"context"
	"fmt"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/middleware"
	"github.com/ruffd-lsp/ruffd/transport"
)

type serveConfig struct {
	transport        transport.Transport
	transportFactory func() (transport.Transport, error)
}

// ServeOption configures how Serve connects to the client.
type ServeOption func(*serveConfig)

// WithTransport sets the transport directly. Stdio is the default.
func WithTransport(t transport.Transport) ServeOption {
	return func(cfg *serveConfig) { cfg.transport = t }
}

// WithStdio communicates over stdin/stdout.
func WithStdio() ServeOption {
	return func(cfg *serveConfig) { cfg.transport = transport.Stdio() }
}

// WithTCP listens on a TCP address (e.g. ":9257") and serves the first
// connection.
func WithTCP(addr string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenTCP(addr)
		}
	}
}

// WithSocket listens on a unix domain socket.
func WithSocket(path string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenSocket(path)
		}
	}
}

// WithWebSocket listens for a WebSocket connection.
func WithWebSocket(addr string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenWebSocket(addr)
		}
	}
}

// Serve runs the server over the configured transport until the connection
// closes or the client sends exit.
func Serve(s *Server, opts ...ServeOption) error {
	cfg := &serveConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.transport == nil && cfg.transportFactory != nil {
		var err error
		cfg.transport, err = cfg.transportFactory()
		if err != nil {
			return fmt.Errorf("creating transport: %w", err)
		}
	}
	if cfg.transport == nil {
		cfg.transport = transport.Stdio()
	}

	codec := jsonrpc.NewCodec(cfg.transport, cfg.transport)

	metrics := middleware.NewMetrics()
	chain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger),
		middleware.Telemetry(metrics),
	)

	handler := jsonrpc.Handler(chain(middleware.Handler(s.dispatch)))
	wrappedNotif := chain(func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
		s.dispatchNotification(ctx, method, params)
		return nil, nil
	})
	notifHandler := func(ctx context.Context, method string, params jsonrpc.RawMessage) {
		_, _ = wrappedNotif(ctx, method, params)
	}

	conn := jsonrpc.NewConn(codec, handler, notifHandler)
	s.conn = conn
	s.client = newClientProxy(conn)

	s.logger.Info("server starting", "name", serverName, "version", serverVersion)

	err := conn.Run(context.Background())

	s.linter.stop()
	for method, snap := range metrics.Snapshot() {
		s.logger.Debug("method stats",
			"method", method,
			"count", snap.Count,
			"errors", snap.Errors,
			"totalTime", snap.TotalTime,
		)
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
