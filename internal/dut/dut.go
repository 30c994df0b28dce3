package dut

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PortState is the desired reachability of the DUT's SSH port.
type PortState string

const (
	PortUp   PortState = "up"
	PortDown PortState = "down"
)

// Client runs commands on the device under test and moves files to and from
// it. All commands are plain shell strings; callers own sudo and quoting of
// embedded arguments.
type Client interface {
	Host() string
	// Platform returns the device platform identifier (e.g.
	// x86_64-mlnx_msn2010-r0). The value is cached after the first read.
	Platform(ctx context.Context) (string, error)
	// Execute runs a command and returns its stdout, stderr and exit code.
	// Transport failures are reported as exit code -1 with the error text in
	// stderr.
	Execute(ctx context.Context, command string) (stdout string, stderr string, exitCode int)
	// ExecuteAsync starts a command without waiting for it. Reboot commands
	// are issued this way so the caller can separately observe the device
	// going down.
	ExecuteAsync(ctx context.Context, command string) (AsyncHandle, error)
	Copy(ctx context.Context, localPath, remotePath string) error
	Fetch(ctx context.Context, remotePath, localPath string) error
	// WaitForPort polls until the SSH port reaches the desired state. delay
	// is slept once before the first probe.
	WaitForPort(ctx context.Context, state PortState, delay, interval, timeout time.Duration) error
	// CriticalServicesStarted reports whether all critical services of the
	// switch OS are active.
	CriticalServicesStarted(ctx context.Context) bool
}

// AsyncHandle tracks a fire-and-forget command.
type AsyncHandle interface {
	// Wait blocks until the command exits or the timeout elapses.
	Wait(timeout time.Duration) error
	// Terminate kills the remote command and tears down its session.
	Terminate() error
	// Close releases the handle's connection without waiting for the
	// command. Safe to call after Wait or Terminate.
	Close() error
}

// ExitError reports a remote command that finished with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.Code, strings.TrimSpace(e.Stderr))
}

// Run executes a command and returns its stdout, converting a non-zero exit
// status into an *ExitError.
func Run(ctx context.Context, c Client, command string) (string, error) {
	stdout, stderr, code := c.Execute(ctx, command)
	if code != 0 {
		return stdout, &ExitError{Command: command, Code: code, Stderr: stderr}
	}
	return stdout, nil
}

// Quote wraps a shell argument in single quotes.
func Quote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
