package jsonrpc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Codec frames JSON-RPC payloads with the Content-Length header scheme of
// the LSP base protocol. Reads are single-consumer; writes are serialized
// because responses and server-initiated messages share one output stream.
type Codec struct {
	in  *bufio.Reader
	out io.Writer
	wmu sync.Mutex
}

// NewCodec wraps the given streams in a framed codec.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{in: bufio.NewReaderSize(r, 64*1024), out: w}
}

// Read consumes one frame and returns its payload.
func (c *Codec) Read() ([]byte, error) {
	length, err := c.readHeaders()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.in, payload); err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return payload, nil
}

// readHeaders scans the header block up to the blank separator line and
// returns the announced payload length. Headers other than Content-Length,
// Content-Type included, are ignored.
func (c *Codec) readHeaders() (int, error) {
	length := -1
	for {
		line, err := c.in.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return 0, fmt.Errorf("bad Content-Length %q: %w", value, err)
			}
		}
	}
	if length < 0 {
		return 0, fmt.Errorf("frame without Content-Length header")
	}
	return length, nil
}

// Write frames the payload and sends it in a single stream write.
func (c *Codec) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	frame := make([]byte, 0, len(data)+32)
	frame = append(frame, "Content-Length: "...)
	frame = strconv.AppendInt(frame, int64(len(data)), 10)
	frame = append(frame, "\r\n\r\n"...)
	frame = append(frame, data...)
	_, err := c.out.Write(frame)
	return err
}
