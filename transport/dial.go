package transport

import "net"

// DialTCP connects to a language server already listening on a TCP address.
func DialTCP(addr string) (Transport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &connTransport{conn: conn}, nil
}

// DialSocket connects to a language server listening on a Unix domain socket.
func DialSocket(path string) (Transport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &connTransport{conn: conn}, nil
}

type connTransport struct {
	conn net.Conn
}

func (t *connTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *connTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *connTransport) Close() error                { return t.conn.Close() }
