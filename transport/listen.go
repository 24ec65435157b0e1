package transport

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/net/websocket"
)

// ListenTCP listens on the given TCP address (e.g. ":9257") and returns the
// first accepted connection as a transport. LSP servers serve exactly one
// client per process.
func ListenTCP(addr string) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	return conn, nil
}

// ListenSocket listens on a Unix domain socket path and returns the first
// accepted connection as a transport. A stale socket file is removed first.
func ListenSocket(path string) (Transport, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on socket %s: %w", path, err)
	}
	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	return &socketTransport{Conn: conn, path: path}, nil
}

type socketTransport struct {
	net.Conn
	path string
}

func (s *socketTransport) Close() error {
	err := s.Conn.Close()
	os.Remove(s.path)
	return err
}

// ListenWebSocket starts an HTTP server with WebSocket upgrade on the given
// address and returns the first WebSocket connection as a transport. Used by
// Monaco, Theia, and other web-based editors.
func ListenWebSocket(addr string) (Transport, error) {
	connCh := make(chan *websocket.Conn, 1)

	handler := websocket.Handler(func(ws *websocket.Conn) {
		connCh <- ws
		// Block until the connection is closed by the transport.
		select {}
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "websocket server error: %v\n", err)
		}
	}()

	ws := <-connCh
	return &wsTransport{conn: ws, srv: srv, ln: ln}, nil
}

type wsTransport struct {
	conn *websocket.Conn
	srv  *http.Server
	ln   net.Listener
}

func (w *wsTransport) Read(p []byte) (int, error)  { return w.conn.Read(p) }
func (w *wsTransport) Write(p []byte) (int, error) { return w.conn.Write(p) }
func (w *wsTransport) Close() error {
	err := w.conn.Close()
	w.srv.Close()
	w.ln.Close()
	return err
}
