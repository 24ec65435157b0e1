// Package transport provides pluggable I/O transports for the LSP
// connection: stdio (the default for editor-spawned servers), TCP, Unix
// domain sockets, WebSocket, and an in-memory pipe for tests.
package transport

import "io"

// Transport provides a bidirectional byte stream for JSON-RPC communication.
type Transport interface {
	io.ReadWriteCloser
}
