package pickhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/lsptest"
)

func activateOptions(server *lsptest.Server) []Option {
	return []Option{
		WithConfig(config.Default()),
		WithTransport(server.ClientTransport()),
		WithoutWorkspaceWatcher(),
		WithLogger(quietLogger()),
	}
}

func TestActivateDeactivateLifecycle(t *testing.T) {
	t.Cleanup(func() { _ = Deactivate(context.Background()) })

	server := lsptest.NewServer(t)
	ctx := context.Background()

	session, err := Activate(ctx, t.TempDir(), activateOptions(server)...)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Same(t, session, Active())

	require.NoError(t, Deactivate(ctx))
	assert.Nil(t, Active())
	assert.True(t, server.ShutdownSeen())
}

func TestActivateWhileActiveFails(t *testing.T) {
	t.Cleanup(func() { _ = Deactivate(context.Background()) })

	server := lsptest.NewServer(t)
	ctx := context.Background()

	_, err := Activate(ctx, t.TempDir(), activateOptions(server)...)
	require.NoError(t, err)

	_, err = Activate(ctx, t.TempDir(), activateOptions(server)...)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestDeactivateWithoutActiveIsNoOp(t *testing.T) {
	require.Nil(t, Active())
	assert.NoError(t, Deactivate(context.Background()))
}

func TestActivateFailsWhenLaunchFails(t *testing.T) {
	t.Cleanup(func() { _ = Deactivate(context.Background()) })

	cfg := config.Default()
	cfg.Server.PythonPath = "/nonexistent/python3"

	_, err := Activate(context.Background(), t.TempDir(),
		WithConfig(cfg),
		WithoutWorkspaceWatcher(),
		WithLogger(quietLogger()),
	)
	require.Error(t, err)

	var launchErr *LaunchError
	assert.ErrorAs(t, err, &launchErr)
	// A failed activation leaves the slot free.
	assert.Nil(t, Active())
}
