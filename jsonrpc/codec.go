package jsonrpc

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"sync"
)

// MaxMessageSize caps a single framed message from the server process.
// A corrupted or runaway peer fails the read instead of exhausting the
// client's memory.
const MaxMessageSize = 32 << 20

// Codec frames JSON-RPC messages with Content-Length headers, the base
// protocol for locally launched LSP servers. Reads happen from a single
// goroutine (the connection's run loop); writes are serialized internally
// so concurrent calls and notifications do not interleave frames.
type Codec struct {
	in  *textproto.Reader
	out io.Writer
	wmu sync.Mutex

	maxSize int
}

// NewCodec wraps the given streams in a Content-Length framed codec.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{
		in:      textproto.NewReader(bufio.NewReaderSize(r, 64*1024)),
		out:     w,
		maxSize: MaxMessageSize,
	}
}

// Read returns the body of the next framed message. Unknown headers
// (Content-Type in particular) are tolerated and ignored.
func (c *Codec) Read() ([]byte, error) {
	header, err := c.in.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	raw := header.Get("Content-Length")
	if raw == "" {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", raw)
	}
	if size > c.maxSize {
		return nil, fmt.Errorf("message of %d bytes exceeds the %d byte limit", size, c.maxSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.in.R, body); err != nil {
		return nil, fmt.Errorf("reading %d byte body: %w", size, err)
	}
	return body, nil
}

// Write frames and sends one message.
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
