// Command ruffd is an LSP server that surfaces Ruff lint diagnostics, fixes,
// and formatting to any LSP client. It speaks JSON-RPC over stdio by default;
// TCP, unix socket, and WebSocket transports are selectable by flag.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ruffd-lsp/ruffd/server"
)

func main() {
	var (
		tcpAddr    = flag.String("tcp", "", "listen on a TCP address (e.g. :9257) instead of stdio")
		socketPath = flag.String("socket", "", "listen on a unix domain socket instead of stdio")
		wsAddr     = flag.String("ws", "", "listen for a WebSocket connection instead of stdio")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	level := new(slog.LevelVar)
	logger := newLogger(*logLevel, level)
	slog.SetDefault(logger)

	var serveOpts []server.ServeOption
	switch {
	case *tcpAddr != "":
		serveOpts = append(serveOpts, server.WithTCP(*tcpAddr))
	case *socketPath != "":
		serveOpts = append(serveOpts, server.WithSocket(*socketPath))
	case *wsAddr != "":
		serveOpts = append(serveOpts, server.WithWebSocket(*wsAddr))
	default:
		serveOpts = append(serveOpts, server.WithStdio())
	}

	s := server.New(server.WithLogger(logger), server.WithLogLevel(level))
	if err := server.Serve(s, serveOpts...); err != nil {
		fmt.Fprintln(os.Stderr, "ruffd:", err)
		os.Exit(1)
	}
}

// newLogger builds a text logger on stderr driven by a level var, so the
// client's logLevel setting can change verbosity after startup. Stdout
// carries the protocol, so nothing else may write to it.
func newLogger(level string, v *slog.LevelVar) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	v.Set(l)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: v}))
}
