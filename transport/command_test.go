//go:build !windows

package transport

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartCommandEcho(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	tr, err := StartCommand("cat", nil)
	require.NoError(t, err)

	payload := []byte("Content-Length: 2\r\n\r\n{}")
	_, err = tr.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	total := 0
	for total < len(payload) {
		n, err := tr.Read(buf[total:])
		require.NoError(t, err)
		total += n
	}
	require.Equal(t, payload, buf)

	require.NoError(t, tr.Close())
}

func TestStartCommandMissingExecutable(t *testing.T) {
	_, err := StartCommand("definitely-not-a-real-binary-4af1", []string{"-m", "x"})
	require.Error(t, err)
}

func TestCloseTerminatesProcess(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	tr, err := StartCommand("cat", nil, WithKillDelay(500*time.Millisecond))
	require.NoError(t, err)

	ct := tr.(*commandTransport)
	require.True(t, ct.Running())

	require.NoError(t, tr.Close())
	require.False(t, ct.Running())
}
