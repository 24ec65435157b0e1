// Package ruffdtest provides an in-memory LSP client for end-to-end server
// tests: no network I/O, typed helpers for the requests the server handles,
// and a fake engine binary for deterministic lint and format output.
package ruffdtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/server"
	"github.com/ruffd-lsp/ruffd/transport"
)

// Client is a test LSP client wired to a server over an in-memory transport.
type Client struct {
	t    testing.TB
	conn *jsonrpc.Conn
	stop func()

	// InitResult is the server's answer to the initialize handshake.
	InitResult protocol.InitializeResult

	mu            sync.Mutex
	notifications []notification
	appliedEdits  []protocol.ApplyWorkspaceEditParams
}

type notification struct {
	Method string
	Params json.RawMessage
}

// Options shape the initialize request the harness sends.
type Options struct {
	InitializationOptions interface{}
	WorkspaceFolders      []protocol.WorkspaceFolder
	ResolveSupport        bool
}

// Option customizes the harness client.
type Option func(*Options)

// WithInitializationOptions sets the initializationOptions payload.
func WithInitializationOptions(v interface{}) Option {
	return func(o *Options) { o.InitializationOptions = v }
}

// WithWorkspaceFolder adds a workspace folder.
func WithWorkspaceFolder(uri, name string) Option {
	return func(o *Options) {
		o.WorkspaceFolders = append(o.WorkspaceFolders, protocol.WorkspaceFolder{
			URI:  protocol.DocumentURI(uri),
			Name: name,
		})
	}
}

// WithResolveSupport advertises codeAction resolve support for edits.
func WithResolveSupport() Option {
	return func(o *Options) { o.ResolveSupport = true }
}

// NewClient starts the server on an in-memory pipe, connects a client, and
// runs the initialize handshake. Everything is torn down with the test.
func NewClient(t testing.TB, s *server.Server, opts ...Option) *Client {
	var options Options
	for _, o := range opts {
		o(&options)
	}

	clientTransport, serverTransport := transport.MemoryPipe()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{t: t, stop: cancel}

	go func() {
		err := server.Serve(s, server.WithTransport(serverTransport))
		if err != nil && ctx.Err() == nil {
			t.Logf("server error: %v", err)
		}
	}()

	codec := jsonrpc.NewCodec(clientTransport, clientTransport)
	c.conn = jsonrpc.NewConn(codec, c.handleRequest, func(ctx context.Context, method string, params jsonrpc.RawMessage) {
		c.mu.Lock()
		c.notifications = append(c.notifications, notification{Method: method, Params: params})
		c.mu.Unlock()
	})

	go func() {
		_ = c.conn.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		c.conn.Close()
		_ = clientTransport.Close()
	})

	c.initialize(options)
	return c
}

// handleRequest answers the server-to-client requests the server makes:
// workspace edits are recorded and accepted, capability registrations are
// acknowledged.
func (c *Client) handleRequest(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	switch method {
	case protocol.MethodApplyEdit:
		var p protocol.ApplyWorkspaceEditParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		c.mu.Lock()
		c.appliedEdits = append(c.appliedEdits, p)
		c.mu.Unlock()
		return &protocol.ApplyWorkspaceEditResponse{Applied: true}, nil
	case protocol.MethodRegisterCapability:
		return nil, nil
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "client does not handle " + method}
	}
}

func (c *Client) initialize(options Options) {
	c.t.Helper()
	var rawOpts json.RawMessage
	if options.InitializationOptions != nil {
		data, err := json.Marshal(options.InitializationOptions)
		if err != nil {
			c.t.Fatalf("marshalling initializationOptions: %v", err)
		}
		rawOpts = data
	}
	caps := protocol.ClientCapabilities{
		Workspace: &protocol.WorkspaceClientCapabilities{
			ApplyEdit:        true,
			WorkspaceFolders: true,
		},
	}
	if options.ResolveSupport {
		caps.TextDocument = &protocol.TextDocumentClientCapabilities{
			CodeAction: &protocol.CodeActionClientCapabilities{
				DataSupport: true,
				ResolveSupport: &struct {
					Properties []string `json:"properties"`
				}{Properties: []string{"edit"}},
			},
		}
	}
	params := &protocol.InitializeParams{
		Capabilities:          caps,
		InitializationOptions: rawOpts,
		WorkspaceFolders:      options.WorkspaceFolders,
	}
	c.call(protocol.MethodInitialize, params, &c.InitResult)
	c.notify(protocol.MethodInitialized, &protocol.InitializedParams{})
}

// AppliedEdits returns the workspace edits the server asked the client to
// apply.
func (c *Client) AppliedEdits() []protocol.ApplyWorkspaceEditParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.ApplyWorkspaceEditParams, len(c.appliedEdits))
	copy(out, c.appliedEdits)
	return out
}

// ShownMessages returns the window/showMessage notifications received so far.
func (c *Client) ShownMessages() []protocol.ShowMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []protocol.ShowMessageParams
	for _, n := range c.notifications {
		if n.Method == protocol.MethodShowMessage {
			var p protocol.ShowMessageParams
			if json.Unmarshal(n.Params, &p) == nil {
				result = append(result, p)
			}
		}
	}
	return result
}

// Diagnostics returns all published diagnostics notifications received so far.
func (c *Client) Diagnostics() []protocol.PublishDiagnosticsParams {
	c.t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []protocol.PublishDiagnosticsParams
	for _, n := range c.notifications {
		if n.Method == protocol.MethodPublishDiagnostics {
			var p protocol.PublishDiagnosticsParams
			if json.Unmarshal(n.Params, &p) == nil {
				result = append(result, p)
			}
		}
	}
	return result
}

// WaitForDiagnostics polls until diagnostics for the URI satisfy the given
// predicate, or fails the test after the timeout. A nil predicate accepts the
// first publication.
func (c *Client) WaitForDiagnostics(uri string, timeout time.Duration, accept func([]protocol.Diagnostic) bool) []protocol.Diagnostic {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if diags, ok := c.latest(uri); ok {
			if accept == nil || accept(diags) {
				return diags
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.t.Fatalf("timed out waiting for diagnostics on %s", uri)
	return nil
}

// LatestDiagnostics returns the most recent publication for the URI, or nil.
func (c *Client) LatestDiagnostics(uri string) []protocol.Diagnostic {
	c.t.Helper()
	diags, _ := c.latest(uri)
	return diags
}

func (c *Client) latest(uri string) ([]protocol.Diagnostic, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.notifications) - 1; i >= 0; i-- {
		n := c.notifications[i]
		if n.Method != protocol.MethodPublishDiagnostics {
			continue
		}
		var p protocol.PublishDiagnosticsParams
		if json.Unmarshal(n.Params, &p) == nil && string(p.URI) == uri {
			return p.Diagnostics, true
		}
	}
	return nil, false
}

// Shutdown sends the shutdown request.
func (c *Client) Shutdown() {
	c.t.Helper()
	c.call(protocol.MethodShutdown, nil, nil)
}

func (c *Client) call(method string, params, result interface{}) {
	c.t.Helper()
	if err := c.callErr(method, params, result); err != nil {
		c.t.Fatalf("call %s failed: %v", method, err)
	}
}

func (c *Client) callErr(method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.conn.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("unmarshalling result: %w", err)
		}
	}
	return nil
}

func (c *Client) notify(method string, params interface{}) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Notify(ctx, method, params); err != nil {
		c.t.Fatalf("notify %s failed: %v", method, err)
	}
}
