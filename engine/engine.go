// Package engine locates and runs the external lint/format engine as a
// subprocess. It owns executable discovery, version probing, argument
// construction, and the classification of process outcomes into the error
// taxonomy the server reports upward.
package engine

import "errors"

var (
	// ErrNotFound means no engine executable could be located.
	ErrNotFound = errors.New("engine: executable not found")
	// ErrVersion means the located executable is older than the operation
	// requires.
	ErrVersion = errors.New("engine: unsupported engine version")
	// ErrTimeout means an invocation exceeded its deadline and was killed.
	ErrTimeout = errors.New("engine: invocation timed out")
	// ErrCrashed means the engine exited abnormally without usable output.
	ErrCrashed = errors.New("engine: crashed")
	// ErrProtocol means the engine exited cleanly but its output could not
	// be understood.
	ErrProtocol = errors.New("engine: unparseable output")
)

// Result holds the raw outcome of one engine invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executable is a located engine binary with its probed version.
type Executable struct {
	Path    string
	Version Version
}
