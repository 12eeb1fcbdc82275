package transport

import (
	"fmt"
	"net/url"
)

// ParseAttach maps an attach target URL to a Factory for connecting to an
// already-running server instead of spawning one:
//
//	tcp://host:port
//	unix:///path/to/server.sock
//	ws://host:port/path (or wss://)
func ParseAttach(target string) (Factory, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid attach target %q: %w", target, err)
	}

	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return nil, fmt.Errorf("attach target %q has no host:port", target)
		}
		addr := u.Host
		return func() (Transport, error) { return DialTCP(addr) }, nil

	case "unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("attach target %q has no socket path", target)
		}
		return func() (Transport, error) { return DialSocket(path) }, nil

	case "ws", "wss":
		return func() (Transport, error) { return DialWebSocket(target, "") }, nil

	default:
		return nil, fmt.Errorf("unsupported attach scheme %q (want tcp, unix, ws, or wss)", u.Scheme)
	}
}
