package pickhost

import (
	"errors"
	"fmt"
)

// ErrAlreadyActive is returned by Activate when a client session is
// already running.
var ErrAlreadyActive = errors.New("pickhost: client already active")

// ErrNotRunning is returned by session operations that require a started
// session.
var ErrNotRunning = errors.New("pickhost: session not running")

// LaunchError reports a failure to start or initialize the language server
// process.
type LaunchError struct {
	Command string
	Args    []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ShutdownError reports a failure during session teardown. Teardown always
// runs to completion; this carries the first error encountered.
type ShutdownError struct {
	Stage string
	Err   error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown (%s): %v", e.Stage, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }
