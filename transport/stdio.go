package transport

import (
	"io"
	"os"
)

// Stdio returns a Transport over the process's stdin and stdout. This is the
// default for editor-spawned servers; stdout must carry nothing but protocol
// frames.
func Stdio() Transport {
	return &stdioTransport{in: os.Stdin, out: os.Stdout}
}

type stdioTransport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s *stdioTransport) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *stdioTransport) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s *stdioTransport) Close() error {
	s.in.Close()
	return s.out.Close()
}
