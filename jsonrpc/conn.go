// Package jsonrpc implements a bidirectional JSON-RPC 2.0 connection over
// Content-Length framed streams, as specified by the LSP base protocol.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Call when the connection shuts down before a
// response arrives.
var ErrClosed = errors.New("jsonrpc: connection closed")

// Handler processes an incoming JSON-RPC request and returns its result.
type Handler func(ctx context.Context, method string, params RawMessage) (result interface{}, err error)

// NotificationHandler processes an incoming JSON-RPC notification.
type NotificationHandler func(ctx context.Context, method string, params RawMessage)

// Conn is a bidirectional JSON-RPC 2.0 connection. The client issues
// requests with integer IDs; incoming server-initiated requests and
// notifications are dispatched to the registered handlers.
type Conn struct {
	codec   *Codec
	handler Handler
	notif   NotificationHandler

	mu      sync.Mutex
	pending map[int64]chan *Response

	nextID    atomic.Int64
	closeOnce sync.Once
	done      chan struct{}
}

// NewConn creates a new JSON-RPC connection using the given codec, request
// handler, and notification handler.
func NewConn(codec *Codec, handler Handler, notif NotificationHandler) *Conn {
	return &Conn{
		codec:   codec,
		handler: handler,
		notif:   notif,
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
	}
}

// Run reads messages from the connection until it is closed or the stream
// fails. A failure after Close (e.g. EOF from a terminated subprocess) is
// reported as a clean shutdown.
func (c *Conn) Run(ctx context.Context) error {
	defer c.failPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		data, err := c.codec.Read()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return fmt.Errorf("reading message: %w", err)
			}
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			continue
		}

		switch m := msg.(type) {
		case *Request:
			go c.handleRequest(ctx, m)
		case *Notification:
			go c.handleNotification(ctx, m)
		case *Response:
			c.deliverResponse(m)
		}
	}
}

func (c *Conn) handleRequest(ctx context.Context, req *Request) {
	var result interface{}
	var err error
	if c.handler != nil {
		result, err = c.handler(ctx, req.Method, req.Params)
	} else {
		err = &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	resp := NewResponse(req.ID, result, err)
	data, merr := json.Marshal(resp)
	if merr != nil {
		return
	}
	_ = c.codec.Write(data)
}

func (c *Conn) handleNotification(ctx context.Context, notif *Notification) {
	if c.notif != nil {
		c.notif(ctx, notif.Method, notif.Params)
	}
}

func (c *Conn) deliverResponse(resp *Response) {
	n, ok := resp.ID.Value().(int64)
	if !ok {
		return
	}
	c.mu.Lock()
	ch := c.pending[n]
	delete(c.pending, n)
	c.mu.Unlock()
	if ch != nil {
		ch <- resp
	}
}

// failPending releases all callers blocked in Call once the read loop exits.
func (c *Conn) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan *Response)
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

// Call sends a request and blocks until the response arrives, the context
// is done, or the connection closes.
func (c *Conn) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	paramsData, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	n := c.nextID.Add(1)
	req := &Request{
		JSONRPC: Version,
		ID:      IntID(n),
		Method:  method,
		Params:  paramsData,
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[n] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, n)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := c.codec.Write(data); err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Notify sends a notification (no response expected).
func (c *Conn) Notify(ctx context.Context, method string, params interface{}) error {
	paramsData, err := marshalParams(params)
	if err != nil {
		return err
	}

	notif := &Notification{
		JSONRPC: Version,
		Method:  method,
		Params:  paramsData,
	}

	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return c.codec.Write(data)
}

// Close terminates the connection. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func marshalParams(v interface{}) (RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
