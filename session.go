package pickhost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/document"
	"github.com/pickbasic-lsp/pickhost/jsonrpc"
	"github.com/pickbasic-lsp/pickhost/middleware"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
	"github.com/pickbasic-lsp/pickhost/watcher"
)

const requestTimeout = 15 * time.Second

// launchArgs builds the argument vector for the server process: the module
// invocation first, then any user-configured extras.
func launchArgs(cfg *config.Config) []string {
	return append([]string{"-m", ServerModule}, cfg.Server.Args...)
}

// Session is a running connection to one Pick BASIC language server. It
// owns the server process (or other transport), tracks open documents, and
// caches diagnostics as the server publishes them.
type Session struct {
	opts     *options
	logger   *slog.Logger
	rootPath string
	rootURI  protocol.DocumentURI

	cfg   *config.Store[config.Config]
	docs  *document.Store
	diags *Diagnostics

	tr   transport.Transport
	conn *jsonrpc.Conn

	mu            sync.Mutex
	started       bool
	serverCaps    protocol.ServerCapabilities
	serverInfo    *protocol.ServerInfo
	registrations map[string]protocol.Registration
	watch         *watcher.Watcher

	runDone chan struct{}
}

// NewSession creates a session rooted at workspaceRoot. The session does not
// talk to the server until Start.
func NewSession(workspaceRoot string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}

	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg, err = config.Load(abs)
		if err != nil {
			return nil, err
		}
	}

	return &Session{
		opts:          o,
		logger:        o.logger,
		rootPath:      abs,
		rootURI:       protocol.URIFromPath(abs),
		cfg:           config.NewStore(cfg),
		docs:          document.NewStore(),
		diags:         NewDiagnostics(),
		registrations: make(map[string]protocol.Registration),
	}, nil
}

// Config returns the session's live configuration store.
func (s *Session) Config() *config.Store[config.Config] { return s.cfg }

// Diagnostics returns the session's diagnostics cache.
func (s *Session) Diagnostics() *Diagnostics { return s.diags }

// Documents returns the session's open document store.
func (s *Session) Documents() *document.Store { return s.docs }

// ServerCapabilities returns the capabilities the server announced during
// the initialize handshake.
func (s *Session) ServerCapabilities() protocol.ServerCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverCaps
}

// ServerInfo returns the name and version the server announced, or nil.
func (s *Session) ServerInfo() *protocol.ServerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// Running reports whether Start completed and Stop has not been called.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Start launches the server transport and performs the LSP initialize
// handshake. On any failure the transport is torn down and a LaunchError
// is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	cfg := s.cfg.Get()

	factory := s.opts.transportFactory
	if factory == nil {
		factory = func() (transport.Transport, error) {
			return transport.StartCommand(cfg.Server.PythonPath, launchArgs(cfg),
				transport.WithStderrLogger(s.logger))
		}
	}

	tr, err := factory()
	if err != nil {
		return &LaunchError{Command: cfg.Server.PythonPath, Args: launchArgs(cfg), Err: err}
	}

	chain := middleware.Chain(append([]middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger),
	}, s.opts.middleware...)...)
	handler := chain(s.handleIncoming)

	conn := jsonrpc.NewConn(
		jsonrpc.NewCodec(tr, tr),
		func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			return handler(ctx, method, params)
		},
		func(ctx context.Context, method string, params jsonrpc.RawMessage) {
			_, _ = handler(ctx, method, params)
		},
	)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := conn.Run(context.Background()); err != nil {
			s.logger.Error("connection terminated", "error", err)
		}
	}()

	if err := s.initialize(ctx, conn); err != nil {
		conn.Close()
		tr.Close()
		return &LaunchError{Command: cfg.Server.PythonPath, Args: launchArgs(cfg), Err: err}
	}

	s.mu.Lock()
	s.tr = tr
	s.conn = conn
	s.runDone = runDone
	s.started = true
	s.mu.Unlock()

	if s.opts.watchWorkspace {
		if err := s.startWatcher(cfg); err != nil {
			s.logger.Warn("workspace watcher unavailable", "error", err)
		}
	}

	s.logger.Info("session started",
		"root", s.rootPath,
		"interpreter", cfg.Server.PythonPath,
	)
	return nil
}

func (s *Session) initialize(ctx context.Context, conn *jsonrpc.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	pid := int32(os.Getpid())
	params := protocol.InitializeParams{
		ProcessID:  &pid,
		ClientInfo: &protocol.ClientInfo{Name: s.opts.clientName, Version: s.opts.clientVersion},
		RootURI:    &s.rootURI,
		Capabilities: clientCapabilities(),
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: s.rootURI, Name: filepath.Base(s.rootPath)},
		},
	}

	resp, err := conn.Call(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize: %w", resp.Error)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("decoding initialize result: %w", err)
	}

	s.mu.Lock()
	s.serverCaps = result.Capabilities
	s.serverInfo = result.ServerInfo
	s.mu.Unlock()

	if err := conn.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

func (s *Session) startWatcher(cfg *config.Config) error {
	w, err := watcher.New(s.rootPath, cfg.Watch.Glob,
		func(events []protocol.FileEvent) {
			if err := s.NotifyWatchedFiles(context.Background(), events); err != nil {
				s.logger.Warn("forwarding file events failed", "error", err)
			}
		},
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.watch = w
	s.mu.Unlock()
	return nil
}

// Stop performs the LSP shutdown handshake and tears the transport down.
// Every stage runs even if an earlier one fails; the first failure is
// returned as a ShutdownError.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.started = false
	conn, tr, w := s.conn, s.tr, s.watch
	runDone := s.runDone
	s.conn, s.tr, s.watch = nil, nil, nil
	s.mu.Unlock()

	var firstErr error
	fail := func(stage string, err error) {
		if err != nil && firstErr == nil {
			firstErr = &ShutdownError{Stage: stage, Err: err}
		}
	}

	if w != nil {
		fail("watcher", w.Close())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	resp, err := conn.Call(shutdownCtx, protocol.MethodShutdown, nil)
	cancel()
	if err != nil {
		fail("shutdown", err)
	} else if resp.Error != nil {
		fail("shutdown", resp.Error)
	}

	fail("exit", conn.Notify(ctx, protocol.MethodExit, nil))

	conn.Close()
	fail("transport", tr.Close())

	if runDone != nil {
		select {
		case <-runDone:
		case <-time.After(requestTimeout):
			fail("drain", fmt.Errorf("read loop did not exit"))
		}
	}

	s.logger.Info("session stopped", "root", s.rootPath)
	return firstErr
}

// --- Document synchronization ---

// OpenDocument opens a file in the session and sends didOpen. The text is
// read from disk. Documents not matching the selector are ignored.
func (s *Session) OpenDocument(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return s.OpenDocumentText(ctx, protocol.URIFromPath(path), string(data))
}

// OpenDocumentText opens a document with the given content and sends didOpen.
func (s *Session) OpenDocumentText(ctx context.Context, uri protocol.DocumentURI, text string) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	if !s.opts.selector.Matches(LanguageID, uri) {
		s.logger.Debug("document outside selector, skipping", "uri", uri)
		return nil
	}

	doc := s.docs.Open(uri, LanguageID, text)
	return conn.Notify(ctx, protocol.MethodDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: doc.Item(),
	})
}

// ChangeDocument replaces a document's content and sends didChange with a
// full-text change event, which is the sync mode the server requires.
func (s *Session) ChangeDocument(ctx context.Context, uri protocol.DocumentURI, text string) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	doc := s.docs.Get(uri)
	if doc == nil {
		return fmt.Errorf("pickhost: document %s not open", uri)
	}

	version := doc.Replace(text)
	return conn.Notify(ctx, protocol.MethodDidChange, protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

// SaveDocument sends didSave for an open document.
func (s *Session) SaveDocument(ctx context.Context, uri protocol.DocumentURI) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	if s.docs.Get(uri) == nil {
		return fmt.Errorf("pickhost: document %s not open", uri)
	}
	return conn.Notify(ctx, protocol.MethodDidSave, protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
}

// CloseDocument sends didClose and drops the document and its diagnostics.
func (s *Session) CloseDocument(ctx context.Context, uri protocol.DocumentURI) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	if !s.docs.Close(uri) {
		return fmt.Errorf("pickhost: document %s not open", uri)
	}
	s.diags.Forget(uri)
	return conn.Notify(ctx, protocol.MethodDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
}

// NotifyWatchedFiles forwards file events to the server.
func (s *Session) NotifyWatchedFiles(ctx context.Context, events []protocol.FileEvent) error {
	if len(events) == 0 {
		return nil
	}
	conn, err := s.connection()
	if err != nil {
		return err
	}
	return conn.Notify(ctx, protocol.MethodDidChangeWatchedFiles, protocol.DidChangeWatchedFilesParams{
		Changes: events,
	})
}

// SetTrace adjusts the server's trace verbosity via $/setTrace.
func (s *Session) SetTrace(ctx context.Context, value string) error {
	switch value {
	case protocol.TraceOff, protocol.TraceMessages, protocol.TraceVerbose:
	default:
		return fmt.Errorf("pickhost: invalid trace value %q", value)
	}
	conn, err := s.connection()
	if err != nil {
		return err
	}
	return conn.Notify(ctx, protocol.MethodSetTrace, protocol.SetTraceParams{Value: value})
}

// NotifyConfigurationChanged pushes the current settings to the server.
func (s *Session) NotifyConfigurationChanged(ctx context.Context) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	return conn.Notify(ctx, protocol.MethodDidChangeConfiguration, protocol.DidChangeConfigurationParams{
		Settings: s.settingsPayload(),
	})
}

// settingsPayload renders the live config in the shape the server reads
// from workspace settings.
func (s *Session) settingsPayload() map[string]interface{} {
	cfg := s.cfg.Get()
	return map[string]interface{}{
		"pickbasic": map[string]interface{}{
			"server": map[string]interface{}{
				"pythonPath": cfg.Server.PythonPath,
			},
		},
	}
}

func (s *Session) connection() (*jsonrpc.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.conn == nil {
		return nil, ErrNotRunning
	}
	return s.conn, nil
}

// --- Incoming server traffic ---

func (s *Session) handleIncoming(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	switch method {
	case protocol.MethodPublishDiagnostics:
		var p protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		s.diags.Publish(p)
		if s.opts.onDiagnostics != nil {
			s.opts.onDiagnostics(p)
		}
		return nil, nil

	case protocol.MethodLogMessage:
		var p protocol.LogMessageParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil
		}
		s.logger.Log(ctx, levelFor(p.Type), "server: "+p.Message)
		return nil, nil

	case protocol.MethodShowMessage:
		var p protocol.ShowMessageParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil
		}
		if s.opts.onShowMessage != nil {
			s.opts.onShowMessage(p)
		} else {
			s.logger.Log(ctx, levelFor(p.Type), "server message: "+p.Message)
		}
		return nil, nil

	case protocol.MethodShowMessageRequest:
		// No interactive surface; decline by answering null.
		return nil, nil

	case protocol.MethodWorkspaceConfiguration:
		var p protocol.ConfigurationParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		return s.configurationFor(p.Items), nil

	case protocol.MethodRegisterCapability:
		var p protocol.RegistrationParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		s.registerCapabilities(p.Registrations)
		return nil, nil

	case protocol.MethodUnregisterCapability:
		var p protocol.UnregistrationParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		s.mu.Lock()
		for _, u := range p.Unregistrations {
			delete(s.registrations, u.ID)
		}
		s.mu.Unlock()
		return nil, nil

	default:
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", method),
		}
	}
}

// configurationFor answers workspace/configuration item by item. Unknown
// sections get null so the server falls back to its defaults.
func (s *Session) configurationFor(items []protocol.ConfigurationItem) []interface{} {
	settings := s.settingsPayload()
	results := make([]interface{}, len(items))
	for i, item := range items {
		switch item.Section {
		case "":
			results[i] = settings
		case "pickbasic":
			results[i] = settings["pickbasic"]
		case "pickbasic.server":
			results[i] = settings["pickbasic"].(map[string]interface{})["server"]
		case "pickbasic.server.pythonPath":
			results[i] = s.cfg.Get().Server.PythonPath
		default:
			results[i] = nil
		}
	}
	return results
}

func (s *Session) registerCapabilities(regs []protocol.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range regs {
		s.registrations[reg.ID] = reg
		s.logger.Debug("capability registered", "id", reg.ID, "method", reg.Method)
	}
}

// Registrations returns the dynamic capability registrations the server has
// made, keyed by registration ID.
func (s *Session) Registrations() map[string]protocol.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]protocol.Registration, len(s.registrations))
	for id, reg := range s.registrations {
		out[id] = reg
	}
	return out
}

func levelFor(t protocol.MessageType) slog.Level {
	switch t {
	case protocol.Error:
		return slog.LevelError
	case protocol.Warning:
		return slog.LevelWarn
	case protocol.Log:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
