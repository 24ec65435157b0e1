package transport

import (
	"bytes"
	"io"
	"sync"
)

// MemoryPipe returns two connected in-process transports, one per peer.
// Writes on either side become reads on the other. Used by the test harness
// to run a client and server without any I/O.
func MemoryPipe() (client Transport, server Transport) {
	clientToServer := &pipe{}
	serverToClient := &pipe{}
	return &memoryTransport{r: serverToClient, w: clientToServer},
		&memoryTransport{r: clientToServer, w: serverToClient}
}

type memoryTransport struct {
	r *pipe
	w *pipe
}

func (m *memoryTransport) Read(p []byte) (int, error)  { return m.r.Read(p) }
func (m *memoryTransport) Write(p []byte) (int, error) { return m.w.Write(p) }

func (m *memoryTransport) Close() error {
	m.r.Close()
	m.w.Close()
	return nil
}

// pipe is a blocking in-memory byte stream. Reads wait for data until the
// pipe is closed, then drain and report EOF.
type pipe struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	cond   *sync.Cond
}

func (p *pipe) init() {
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
}

func (p *pipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := p.buf.Write(data)
	p.cond.Signal()
	return n, err
}

func (p *pipe) Read(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	for p.buf.Len() == 0 {
		if p.closed {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
	return p.buf.Read(data)
}

func (p *pipe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.closed = true
	p.cond.Broadcast()
}
