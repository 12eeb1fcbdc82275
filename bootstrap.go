package pickhost

import (
	"context"
	"sync"
)

// Version is the client version announced to the server.
const Version = "0.1.0"

const (
	clientName = "pickhost"

	// LanguageID is the LSP language identifier for Pick BASIC documents.
	LanguageID = "pickbasic"

	// ServerModule is the Python module launched as the language server.
	ServerModule = "pickbasic_lsp"

	// DefaultPythonPath is the interpreter used when no setting overrides it.
	DefaultPythonPath = "python3"

	// WatchGlob selects the source files the workspace watcher reports.
	WatchGlob = "**/*.{bp,b,bas,basic}"
)

var (
	activeMu sync.Mutex
	active   *Session
)

// Activate starts the single client session for a workspace. Only one
// session may be active per process; a second Activate while one is running
// returns ErrAlreadyActive.
func Activate(ctx context.Context, workspaceRoot string, opts ...Option) (*Session, error) {
	activeMu.Lock()
	defer activeMu.Unlock()

	if active != nil {
		return nil, ErrAlreadyActive
	}

	session, err := NewSession(workspaceRoot, opts...)
	if err != nil {
		return nil, err
	}
	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	active = session
	return session, nil
}

// Deactivate stops the active session if there is one. Calling it with no
// active session is a no-op.
func Deactivate(ctx context.Context) error {
	activeMu.Lock()
	session := active
	active = nil
	activeMu.Unlock()

	if session == nil {
		return nil
	}
	return session.Stop(ctx)
}

// Active returns the running session, or nil.
func Active() *Session {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}
