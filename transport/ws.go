package transport

import (
	"sync"

	"golang.org/x/net/websocket"
)

// DialWebSocket attaches to a language server exposed over WebSocket, as
// web-based hosts serve them. origin is sent as the handshake Origin
// header; an empty origin defaults to the target URL.
func DialWebSocket(url, origin string) (Transport, error) {
	if origin == "" {
		origin = url
	}
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: ws}, nil
}

// wsTransport adapts message-oriented WebSocket frames to the byte stream
// the codec reads. A frame larger than the caller's buffer is carried over
// to subsequent reads rather than truncated.
type wsTransport struct {
	conn      *websocket.Conn
	leftover  []byte
	closeOnce sync.Once
}

func (w *wsTransport) Read(p []byte) (int, error) {
	if len(w.leftover) == 0 {
		var frame []byte
		if err := websocket.Message.Receive(w.conn, &frame); err != nil {
			return 0, err
		}
		w.leftover = frame
	}
	n := copy(p, w.leftover)
	w.leftover = w.leftover[n:]
	return n, nil
}

func (w *wsTransport) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsTransport) Close() error {
	w.closeOnce.Do(func() { w.conn.Close() })
	return nil
}
