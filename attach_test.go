package pickhost

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/lsptest"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
)

// The session can attach to an already-running server over TCP instead of
// spawning one.
func TestSessionAttachesOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	factory, err := transport.ParseAttach("tcp://" + ln.Addr().String())
	require.NoError(t, err)

	session, err := NewSession(t.TempDir(),
		WithConfig(config.Default()),
		WithTransportFactory(factory),
		WithoutWorkspaceWatcher(),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	// Start blocks in the handshake; the fake server comes up on the
	// accepted side while TCP buffers the initialize request.
	startErr := make(chan error, 1)
	go func() { startErr <- session.Start(context.Background()) }()

	server := lsptest.NewServerOn(t, <-accepted)
	require.NoError(t, <-startErr)

	server.HandleResult(protocol.MethodHover, protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: "OCONV"},
	})
	hover, err := session.Hover(context.Background(), lsptest.FileURI("/ws/A.bp"), lsptest.Pos(0, 0))
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "OCONV", hover.Contents.Value)

	require.NoError(t, session.Stop(context.Background()))
	assert.True(t, server.ShutdownSeen())
}
