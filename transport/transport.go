// Package transport provides byte-stream transports for talking to a
// language server. The primary transport spawns the server as a subprocess
// and uses its standard input/output; Dial variants attach to servers that
// are already listening on TCP, Unix sockets, or WebSocket.
package transport

import "io"

// Transport provides a bidirectional byte stream for JSON-RPC communication.
// Closing a transport releases whatever backs it: for a subprocess transport
// this closes stdin and waits for the process to exit.
type Transport interface {
	io.ReadWriteCloser
}

// Factory produces a connected Transport. The session uses a Factory so the
// actual spawn/dial happens during Start, not at configuration time.
type Factory func() (Transport, error)
