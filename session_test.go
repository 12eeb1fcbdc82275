package pickhost

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/lsptest"
	"github.com/pickbasic-lsp/pickhost/protocol"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startSession(t *testing.T, server *lsptest.Server, extra ...Option) *Session {
	t.Helper()

	opts := append([]Option{
		WithConfig(config.Default()),
		WithTransport(server.ClientTransport()),
		WithoutWorkspaceWatcher(),
		WithLogger(quietLogger()),
	}, extra...)

	session, err := NewSession(t.TempDir(), opts...)
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))
	t.Cleanup(func() {
		if session.Running() {
			_ = session.Stop(context.Background())
		}
	})
	return session
}

func TestStartPerformsHandshake(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	init := server.InitializeParams()
	require.NotNil(t, init)
	require.NotNil(t, init.ProcessID)
	require.NotNil(t, init.RootURI)
	require.NotNil(t, init.ClientInfo)
	assert.Equal(t, "pickhost", init.ClientInfo.Name)
	require.Len(t, init.WorkspaceFolders, 1)

	server.WaitForNotification(protocol.MethodInitialized, time.Second)

	caps := session.ServerCapabilities()
	require.NotNil(t, caps.TextDocumentSync)
	assert.Equal(t, protocol.SyncFull, caps.TextDocumentSync.Change)
	require.NotNil(t, caps.CompletionProvider)
	assert.Equal(t, []string{"."}, caps.CompletionProvider.TriggerCharacters)

	require.NotNil(t, session.ServerInfo())
	assert.Equal(t, "pickbasic-lsp", session.ServerInfo().Name)
}

func TestStartTwiceFails(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	assert.ErrorIs(t, session.Start(context.Background()), ErrAlreadyActive)
}

func TestStopSendsShutdownAndExit(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	require.NoError(t, session.Stop(context.Background()))
	assert.True(t, server.ShutdownSeen())
	require.Len(t, server.Notifications(protocol.MethodExit), 1)
	assert.False(t, session.Running())

	assert.ErrorIs(t, session.Stop(context.Background()), ErrNotRunning)
}

func TestOpenChangeCloseDocument(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	uri := lsptest.FileURI("/ws/INVOICE.bp")
	ctx := context.Background()

	require.NoError(t, session.OpenDocumentText(ctx, uri, lsptest.SampleProgram))
	open := server.WaitForNotification(protocol.MethodDidOpen, time.Second)

	var openParams protocol.DidOpenTextDocumentParams
	lsptest.DecodeNotification(t, open, &openParams)
	assert.Equal(t, uri, openParams.TextDocument.URI)
	assert.Equal(t, "pickbasic", openParams.TextDocument.LanguageID)
	assert.Equal(t, int32(1), openParams.TextDocument.Version)
	assert.Equal(t, lsptest.SampleProgram, openParams.TextDocument.Text)

	require.NoError(t, session.ChangeDocument(ctx, uri, "PRINT 1\n"))
	change := server.WaitForNotification(protocol.MethodDidChange, time.Second)

	var changeParams protocol.DidChangeTextDocumentParams
	lsptest.DecodeNotification(t, change, &changeParams)
	assert.Equal(t, int32(2), changeParams.TextDocument.Version)
	require.Len(t, changeParams.ContentChanges, 1)
	assert.Nil(t, changeParams.ContentChanges[0].Range)
	assert.Equal(t, "PRINT 1\n", changeParams.ContentChanges[0].Text)

	require.NoError(t, session.SaveDocument(ctx, uri))
	server.WaitForNotification(protocol.MethodDidSave, time.Second)

	require.NoError(t, session.CloseDocument(ctx, uri))
	server.WaitForNotification(protocol.MethodDidClose, time.Second)
	assert.Nil(t, session.Documents().Get(uri))
}

func TestChangeUnopenedDocumentFails(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	err := session.ChangeDocument(context.Background(), lsptest.FileURI("/ws/GHOST.bp"), "X = 1")
	assert.Error(t, err)
}

func TestOpenOutsideSelectorIsSkipped(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	err := session.OpenDocumentText(context.Background(), "untitled:scratch", "PRINT 1")
	require.NoError(t, err)
	assert.Zero(t, session.Documents().Len())
	assert.Empty(t, server.Notifications(protocol.MethodDidOpen))
}

func TestPublishDiagnosticsReachesCache(t *testing.T) {
	server := lsptest.NewServer(t)

	got := make(chan protocol.PublishDiagnosticsParams, 1)
	session := startSession(t, server, WithDiagnosticsHandler(func(p protocol.PublishDiagnosticsParams) {
		got <- p
	}))

	uri := lsptest.FileURI("/ws/INVOICE.bp")
	server.PublishDiagnostics(uri, []protocol.Diagnostic{
		lsptest.Diag(2, protocol.SeverityError, "unterminated string"),
	})

	select {
	case p := <-got:
		assert.Equal(t, uri, p.URI)
	case <-time.After(time.Second):
		t.Fatal("diagnostics handler not invoked")
	}

	diags := session.Diagnostics().Get(uri)
	require.Len(t, diags, 1)
	assert.Equal(t, "unterminated string", diags[0].Message)
}

func TestNotifyWatchedFiles(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	events := []protocol.FileEvent{
		{URI: lsptest.FileURI("/ws/NEW.bas"), Type: protocol.FileCreated},
		{URI: lsptest.FileURI("/ws/OLD.bp"), Type: protocol.FileDeleted},
	}
	require.NoError(t, session.NotifyWatchedFiles(context.Background(), events))

	n := server.WaitForNotification(protocol.MethodDidChangeWatchedFiles, time.Second)
	var params protocol.DidChangeWatchedFilesParams
	lsptest.DecodeNotification(t, n, &params)
	assert.Equal(t, events, params.Changes)

	// Empty batches are dropped, not sent.
	require.NoError(t, session.NotifyWatchedFiles(context.Background(), nil))
	assert.Len(t, server.Notifications(protocol.MethodDidChangeWatchedFiles), 1)
}

func TestWorkspaceConfigurationAnswers(t *testing.T) {
	server := lsptest.NewServer(t)

	cfg := config.Default()
	cfg.Server.PythonPath = "/usr/local/bin/python3"
	startSession(t, server, WithConfig(cfg))

	answers := server.RequestConfiguration("pickbasic.server.pythonPath", "unknown.section")
	require.Len(t, answers, 2)

	var pythonPath string
	require.NoError(t, json.Unmarshal(answers[0], &pythonPath))
	assert.Equal(t, "/usr/local/bin/python3", pythonPath)
	assert.Equal(t, "null", string(answers[1]))
}

func TestSetTrace(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)
	ctx := context.Background()

	require.NoError(t, session.SetTrace(ctx, protocol.TraceVerbose))
	n := server.WaitForNotification(protocol.MethodSetTrace, time.Second)

	var params protocol.SetTraceParams
	lsptest.DecodeNotification(t, n, &params)
	assert.Equal(t, "verbose", params.Value)

	assert.Error(t, session.SetTrace(ctx, "loud"))
	assert.Len(t, server.Notifications(protocol.MethodSetTrace), 1)
}

func TestRegisterCapabilityTracked(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)

	id := server.RegisterWatchers("**/*.{bp,b,bas,basic}")

	regs := session.Registrations()
	require.Contains(t, regs, id)
	assert.Equal(t, protocol.MethodDidChangeWatchedFiles, regs[id].Method)
}
