package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"
)

// CommandOption configures a subprocess transport.
type CommandOption func(*commandTransport)

// WithStderrLogger routes the subprocess's stderr lines to the given logger.
// Without it stderr is discarded.
func WithStderrLogger(l *slog.Logger) CommandOption {
	return func(t *commandTransport) { t.logger = l }
}

// WithKillDelay sets how long Close waits for a voluntary exit before the
// process is killed (default 3s).
func WithKillDelay(d time.Duration) CommandOption {
	return func(t *commandTransport) { t.killDelay = d }
}

// StartCommand spawns command with args and returns a transport over its
// stdin/stdout, per the LSP convention for locally launched servers.
// The process is expected to exit on its own after the LSP exit notification;
// Close closes stdin and waits, escalating to SIGKILL after the kill delay.
func StartCommand(command string, args []string, opts ...CommandOption) (Transport, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	t := &commandTransport{
		cmd:       cmd,
		stdin:     stdin,
		stdout:    stdout,
		killDelay: 3 * time.Second,
	}
	for _, o := range opts {
		o(t)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	go t.drainStderr(stderr)

	return t, nil
}

type commandTransport struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	logger    *slog.Logger
	killDelay time.Duration
}

func (t *commandTransport) Read(p []byte) (int, error)  { return t.stdout.Read(p) }
func (t *commandTransport) Write(p []byte) (int, error) { return t.stdin.Write(p) }

// Close closes stdin (EOF is a shutdown signal for stdio servers) and waits
// for the process to exit, killing it if it lingers past the kill delay.
func (t *commandTransport) Close() error {
	t.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- t.cmd.Wait() }()

	select {
	case err := <-done:
		return ignoreExitError(err)
	case <-time.After(t.killDelay):
		t.cmd.Process.Kill()
		return ignoreExitError(<-done)
	}
}

// PID returns the subprocess ID, or 0 before the process started.
func (t *commandTransport) PID() int {
	if t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

// Running reports whether the subprocess is still alive.
func (t *commandTransport) Running() bool {
	if t.cmd.Process == nil {
		return false
	}
	if t.cmd.ProcessState != nil {
		return false
	}
	return t.cmd.Process.Signal(syscall.Signal(0)) == nil
}

func (t *commandTransport) drainStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if t.logger != nil {
			t.logger.Debug("server stderr", "line", sc.Text())
		}
	}
}

// ignoreExitError maps the expected non-zero-exit and kill outcomes to nil;
// a server that died because we closed its stdin is not a transport failure.
func ignoreExitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
