package jsonrpc

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// duplexPipe wires two codecs together in memory.
func duplexPipe() (a, b *Codec) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return NewCodec(ar, aw), NewCodec(br, bw)
}

func TestCallRoundTrip(t *testing.T) {
	clientCodec, serverCodec := duplexPipe()

	server := NewConn(serverCodec, func(ctx context.Context, method string, params RawMessage) (interface{}, error) {
		if method != "ping" {
			return nil, &Error{Code: CodeMethodNotFound, Message: method}
		}
		return map[string]string{"reply": "pong"}, nil
	}, nil)
	client := NewConn(clientCodec, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)
	defer server.Close()
	defer client.Close()

	resp, err := client.Call(ctx, "ping", nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	var result map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "pong", result["reply"])
}

func TestCallMethodNotFound(t *testing.T) {
	clientCodec, serverCodec := duplexPipe()

	server := NewConn(serverCodec, nil, nil)
	client := NewConn(clientCodec, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)
	defer server.Close()
	defer client.Close()

	resp, err := client.Call(ctx, "no/such/method", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestNotificationDispatch(t *testing.T) {
	clientCodec, serverCodec := duplexPipe()

	var mu sync.Mutex
	var got []string
	server := NewConn(serverCodec, nil, func(ctx context.Context, method string, params RawMessage) {
		mu.Lock()
		got = append(got, method)
		mu.Unlock()
	})
	client := NewConn(clientCodec, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)
	defer server.Close()
	defer client.Close()

	require.NoError(t, client.Notify(ctx, "textDocument/didOpen", map[string]any{}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "textDocument/didOpen"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCallFailsWhenConnectionCloses(t *testing.T) {
	clientCodec, _ := duplexPipe()
	client := NewConn(clientCodec, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go client.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call(ctx, "hang", nil)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	client.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after Close")
	}
}

func TestDecodeMessageKinds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, "request"},
		{"notification", `{"jsonrpc":"2.0","method":"initialized"}`, "notification"},
		{"response", `{"jsonrpc":"2.0","id":1,"result":null}`, "response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.in))
			require.NoError(t, err)
			switch msg.(type) {
			case *Request:
				assert.Equal(t, "request", tt.want)
			case *Notification:
				assert.Equal(t, "notification", tt.want)
			case *Response:
				assert.Equal(t, "response", tt.want)
			}
		})
	}
}
