// Package lsptest provides an in-memory fake language server for testing
// pickhost sessions without spawning a Python process. The fake answers the
// initialize handshake with Pick BASIC server capabilities, records every
// notification the client sends, and lets tests script feature responses
// and push server-initiated traffic.
package lsptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pickbasic-lsp/pickhost/jsonrpc"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
)

// Handler produces the result for one scripted method.
type Handler func(params jsonrpc.RawMessage) (interface{}, error)

// Notification is a recorded client-to-server notification.
type Notification struct {
	Method string
	Params jsonrpc.RawMessage
}

// Server is the fake language server. Obtain the client side of its
// transport with ClientTransport and hand it to the session under test.
type Server struct {
	t      testing.TB
	conn   *jsonrpc.Conn
	client transport.Transport

	mu            sync.Mutex
	handlers      map[string]Handler
	notifications []Notification
	arrived       chan struct{}
	initParams    *protocol.InitializeParams
	shutdownSeen  bool
	capabilities  protocol.ServerCapabilities
}

// NewServer starts a fake server wired to an in-memory transport. It is
// stopped automatically when the test finishes.
func NewServer(t testing.TB) *Server {
	clientSide, serverSide := transport.MemoryPipe()

	s := NewServerOn(t, serverSide)
	s.client = clientSide
	t.Cleanup(func() { clientSide.Close() })
	return s
}

// NewServerOn starts the fake server over an arbitrary transport, e.g. the
// server side of a TCP or socket connection. ClientTransport is nil in this
// mode; the test connects the session through its own dialer.
func NewServerOn(t testing.TB, serverSide transport.Transport) *Server {
	s := &Server{
		t:            t,
		handlers:     make(map[string]Handler),
		arrived:      make(chan struct{}),
		capabilities: DefaultCapabilities(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.conn = jsonrpc.NewConn(
		jsonrpc.NewCodec(serverSide, serverSide),
		s.handleRequest,
		s.handleNotification,
	)
	go s.conn.Run(ctx)

	t.Cleanup(func() {
		cancel()
		s.conn.Close()
		serverSide.Close()
	})

	return s
}

// DefaultCapabilities mirrors what the Pick BASIC server announces:
// full-text sync and the six language features it implements.
func DefaultCapabilities() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.SyncFull,
		},
		HoverProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{"."},
		},
		DefinitionProvider:     true,
		ReferencesProvider:     true,
		DocumentSymbolProvider: true,
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: protocol.SemanticTokensLegend{
				TokenTypes: []string{
					"keyword", "variable", "function", "string",
					"number", "comment", "operator", "label",
				},
			},
			Full: true,
		},
	}
}

// ClientTransport returns the client side of the in-memory pipe.
func (s *Server) ClientTransport() transport.Transport { return s.client }

// SetCapabilities replaces the capabilities announced on initialize. Must
// be called before the session starts.
func (s *Server) SetCapabilities(caps protocol.ServerCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities = caps
}

// Handle scripts the response for a request method.
func (s *Server) Handle(method string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// HandleResult scripts a fixed result for a request method.
func (s *Server) HandleResult(method string, result interface{}) {
	s.Handle(method, func(jsonrpc.RawMessage) (interface{}, error) {
		return result, nil
	})
}

func (s *Server) handleRequest(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	s.mu.Lock()
	scripted := s.handlers[method]
	s.mu.Unlock()

	switch method {
	case protocol.MethodInitialize:
		var p protocol.InitializeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		s.mu.Lock()
		s.initParams = &p
		caps := s.capabilities
		s.mu.Unlock()
		return protocol.InitializeResult{
			Capabilities: caps,
			ServerInfo:   &protocol.ServerInfo{Name: "pickbasic-lsp", Version: "0.0.0-test"},
		}, nil

	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdownSeen = true
		s.mu.Unlock()
		return nil, nil
	}

	if scripted != nil {
		return scripted(params)
	}
	return nil, &jsonrpc.Error{
		Code:    jsonrpc.CodeMethodNotFound,
		Message: fmt.Sprintf("unscripted method: %s", method),
	}
}

func (s *Server) handleNotification(ctx context.Context, method string, params jsonrpc.RawMessage) {
	s.mu.Lock()
	s.notifications = append(s.notifications, Notification{Method: method, Params: params})
	// Wake everyone blocked in WaitForNotification.
	close(s.arrived)
	s.arrived = make(chan struct{})
	s.mu.Unlock()
}

// InitializeParams returns what the client sent on initialize, or nil if
// the handshake has not happened.
func (s *Server) InitializeParams() *protocol.InitializeParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initParams
}

// ShutdownSeen reports whether the client sent a shutdown request.
func (s *Server) ShutdownSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownSeen
}

// Notifications returns all recorded notifications for a method, in order.
func (s *Server) Notifications(method string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.notifications {
		if n.Method == method {
			out = append(out, n)
		}
	}
	return out
}

// WaitForNotification blocks until the client sends a notification for the
// given method, returning the first match. It fails the test on timeout.
func (s *Server) WaitForNotification(method string, timeout time.Duration) Notification {
	s.t.Helper()
	deadline := time.After(timeout)
	for {
		s.mu.Lock()
		for _, n := range s.notifications {
			if n.Method == method {
				s.mu.Unlock()
				return n
			}
		}
		arrived := s.arrived
		s.mu.Unlock()

		select {
		case <-arrived:
		case <-deadline:
			s.t.Fatalf("timed out waiting for %s notification", method)
			return Notification{}
		}
	}
}

// DecodeNotification unmarshals a recorded notification's params into out.
func DecodeNotification(t testing.TB, n Notification, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(n.Params, out); err != nil {
		t.Fatalf("decoding %s params: %v", n.Method, err)
	}
}

// PublishDiagnostics pushes a publishDiagnostics notification to the client.
func (s *Server) PublishDiagnostics(uri protocol.DocumentURI, diags []protocol.Diagnostic) {
	s.t.Helper()
	s.notify(protocol.MethodPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// LogMessage pushes a window/logMessage notification to the client.
func (s *Server) LogMessage(typ protocol.MessageType, message string) {
	s.t.Helper()
	s.notify(protocol.MethodLogMessage, protocol.LogMessageParams{Type: typ, Message: message})
}

// ShowMessage pushes a window/showMessage notification to the client.
func (s *Server) ShowMessage(typ protocol.MessageType, message string) {
	s.t.Helper()
	s.notify(protocol.MethodShowMessage, protocol.ShowMessageParams{Type: typ, Message: message})
}

// RegisterWatchers sends a client/registerCapability request asking the
// client to watch a glob, and returns the registration ID.
func (s *Server) RegisterWatchers(glob string) string {
	s.t.Helper()
	id := uuid.NewString()
	_, err := s.call(protocol.MethodRegisterCapability, protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     id,
			Method: protocol.MethodDidChangeWatchedFiles,
			RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
				Watchers: []protocol.FileSystemWatcher{{GlobPattern: glob}},
			},
		}},
	})
	if err != nil {
		s.t.Fatalf("registerCapability failed: %v", err)
	}
	return id
}

// RequestConfiguration asks the client for configuration sections and
// returns the raw answers.
func (s *Server) RequestConfiguration(sections ...string) []jsonrpc.RawMessage {
	s.t.Helper()
	items := make([]protocol.ConfigurationItem, len(sections))
	for i, sec := range sections {
		items[i] = protocol.ConfigurationItem{Section: sec}
	}
	result, err := s.call(protocol.MethodWorkspaceConfiguration, protocol.ConfigurationParams{Items: items})
	if err != nil {
		s.t.Fatalf("workspace/configuration failed: %v", err)
	}
	var answers []jsonrpc.RawMessage
	if err := json.Unmarshal(result, &answers); err != nil {
		s.t.Fatalf("decoding configuration answers: %v", err)
	}
	return answers
}

func (s *Server) call(method string, params interface{}) (jsonrpc.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := s.conn.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (s *Server) notify(method string, params interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.conn.Notify(ctx, method, params); err != nil {
		s.t.Fatalf("notify %s failed: %v", method, err)
	}
}
