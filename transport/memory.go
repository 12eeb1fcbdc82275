package transport

import (
	"io"
	"sync"
)

// MemoryPipe returns two connected in-process transports: what one side
// writes, the other reads. Tests hand the client end to a session and the
// server end to a fake server; no subprocess or socket is involved.
//
// Both directions are synchronous io.Pipes, so a write completes only once
// the peer reads it. Both ends of a pipe pair must therefore have an active
// reader, which a running connection loop provides.
func MemoryPipe() (client Transport, server Transport) {
	toServer := newHalf()
	toClient := newHalf()

	client = &memoryEnd{in: toClient, out: toServer}
	server = &memoryEnd{in: toServer, out: toClient}
	return client, server
}

type half struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newHalf() half {
	r, w := io.Pipe()
	return half{r: r, w: w}
}

type memoryEnd struct {
	in        half
	out       half
	closeOnce sync.Once
}

func (m *memoryEnd) Read(p []byte) (int, error)  { return m.in.r.Read(p) }
func (m *memoryEnd) Write(p []byte) (int, error) { return m.out.w.Write(p) }

// Close shuts down both directions for this end: the peer's reads return
// EOF and its writes fail with io.ErrClosedPipe.
func (m *memoryEnd) Close() error {
	m.closeOnce.Do(func() {
		m.in.r.Close()
		m.out.w.Close()
	})
	return nil
}
