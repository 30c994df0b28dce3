// Package duttest provides a scriptable in-memory dut.Client for unit tests.
package duttest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/netlab-io/fwutil-harness/internal/dut"
)

// Response is the scripted outcome of one remote command.
type Response struct {
	Stdout string
	Stderr string
	Code   int
}

// Fake implements dut.Client against scripted responses. Commands are matched
// first against Responses by exact string, then handed to Script if set;
// anything else succeeds with empty output.
type Fake struct {
	mu sync.Mutex

	Responses map[string]Response
	Script    func(command string) (Response, bool)

	Commands      []string
	AsyncCommands []string
	Handles       []*FakeHandle

	Copied  map[string]string // remote path -> local path
	CopyErr error

	FetchContent map[string]string // remote path -> content
	FetchErr     error

	PortWaits []dut.PortState
	PortErr   map[dut.PortState]error

	ServicesReadyAfter int // polls before CriticalServicesStarted reports true
	servicesPolls      int

	PlatformID string
}

var _ dut.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Responses:    map[string]Response{},
		Copied:       map[string]string{},
		FetchContent: map[string]string{},
		PortErr:      map[dut.PortState]error{},
		PlatformID:   "x86_64-testbox-r0",
	}
}

func (f *Fake) Host() string {
	return "dut.example"
}

func (f *Fake) Platform(ctx context.Context) (string, error) {
	if f.PlatformID == "" {
		return "", fmt.Errorf("no platform configured")
	}
	return f.PlatformID, nil
}

func (f *Fake) Execute(ctx context.Context, command string) (string, string, int) {
	f.mu.Lock()
	f.Commands = append(f.Commands, command)
	f.mu.Unlock()

	if resp, ok := f.Responses[command]; ok {
		return resp.Stdout, resp.Stderr, resp.Code
	}
	if f.Script != nil {
		if resp, ok := f.Script(command); ok {
			return resp.Stdout, resp.Stderr, resp.Code
		}
	}
	return "", "", 0
}

func (f *Fake) ExecuteAsync(ctx context.Context, command string) (dut.AsyncHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AsyncCommands = append(f.AsyncCommands, command)
	handle := &FakeHandle{}
	f.Handles = append(f.Handles, handle)
	return handle, nil
}

func (f *Fake) Copy(ctx context.Context, localPath, remotePath string) error {
	if f.CopyErr != nil {
		return f.CopyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Copied[remotePath] = localPath
	return nil
}

func (f *Fake) Fetch(ctx context.Context, remotePath, localPath string) error {
	if f.FetchErr != nil {
		return f.FetchErr
	}
	content, ok := f.FetchContent[remotePath]
	if !ok {
		return fmt.Errorf("no such remote file %s", remotePath)
	}
	return os.WriteFile(localPath, []byte(content), 0o644)
}

func (f *Fake) WaitForPort(ctx context.Context, state dut.PortState, delay, interval, timeout time.Duration) error {
	f.mu.Lock()
	f.PortWaits = append(f.PortWaits, state)
	f.mu.Unlock()
	return f.PortErr[state]
}

func (f *Fake) CriticalServicesStarted(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servicesPolls++
	return f.servicesPolls > f.ServicesReadyAfter
}

// Executed reports whether any recorded command starts with prefix.
func (f *Fake) Executed(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cmd := range f.Commands {
		if len(cmd) >= len(prefix) && cmd[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// FakeHandle is a no-op async command handle.
type FakeHandle struct {
	mu         sync.Mutex
	Terminated bool
	Closed     bool
	WaitErr    error
}

var _ dut.AsyncHandle = (*FakeHandle)(nil)

func (h *FakeHandle) Wait(timeout time.Duration) error {
	return h.WaitErr
}

func (h *FakeHandle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Terminated = true
	h.Closed = true
	return nil
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Closed = true
	return nil
}
