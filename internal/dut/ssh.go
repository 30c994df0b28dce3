package dut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/netlab-io/fwutil-harness/pkg/log"
	"github.com/netlab-io/fwutil-harness/pkg/poll"
	"golang.org/x/crypto/ssh"
)

const (
	dialTimeout  = 30 * time.Second
	probeTimeout = 5 * time.Second
)

// criticalServices are the switch OS services that must be active before the
// device counts as ready.
var criticalServices = []string{"database", "swss", "syncd", "pmon", "bgp", "teamd"}

// Config carries the SSH endpoint of the DUT.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type sshClient struct {
	config Config
	log    *log.PrefixLogger

	mu       sync.Mutex
	platform string
}

var _ Client = (*sshClient)(nil)

// NewSSHClient returns a Client that dials a fresh SSH connection per
// command. Connections are not reused because the device reboots and power
// cycles mid-test.
func NewSSHClient(config Config, logger *log.PrefixLogger) Client {
	if config.Port == 0 {
		config.Port = 22
	}
	return &sshClient{config: config, log: logger}
}

func (c *sshClient) Host() string {
	return c.config.Host
}

func (c *sshClient) addr() string {
	return net.JoinHostPort(c.config.Host, fmt.Sprintf("%d", c.config.Port))
}

func (c *sshClient) dial() (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User: c.config.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.config.Password),
		},
		//nolint:gosec
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
	client, err := ssh.Dial("tcp", c.addr(), cfg)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.addr(), err)
	}
	return client, nil
}

func (c *sshClient) Execute(ctx context.Context, command string) (string, string, int) {
	c.log.Debugf("Executing on %s: %s", c.config.Host, command)

	client, err := c.dial()
	if err != nil {
		return "", err.Error(), -1
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", err.Error(), -1
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return stdout.String(), ctx.Err().Error(), -1
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitStatus()
		}
		return stdout.String(), errorStr(err, &stderr), -1
	}
	return stdout.String(), stderr.String(), 0
}

func (c *sshClient) ExecuteAsync(ctx context.Context, command string) (AsyncHandle, error) {
	c.log.Debugf("Executing async on %s: %s", c.config.Host, command)

	client, err := c.dial()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, err
	}

	if err := session.Start(command); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("starting %q: %w", command, err)
	}

	handle := &asyncCmd{client: client, session: session, done: make(chan error, 1)}
	go func() {
		handle.done <- session.Wait()
	}()
	return handle, nil
}

func (c *sshClient) Copy(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	c.log.Infof("Copying %s (%s) to %s:%s", localPath, humanize.Bytes(uint64(fi.Size())), c.config.Host, remotePath)

	client, err := c.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	session.Stdin = f
	var stderr bytes.Buffer
	session.Stderr = &stderr
	if err := session.Run(fmt.Sprintf("cat > %s", Quote(remotePath))); err != nil {
		return fmt.Errorf("copying to %s: %w, stderr: %s", remotePath, err, stderr.String())
	}
	return nil
}

func (c *sshClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	c.log.Infof("Fetching %s:%s to %s", c.config.Host, remotePath, localPath)

	client, err := c.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	defer f.Close()

	session.Stdout = f
	var stderr bytes.Buffer
	session.Stderr = &stderr
	if err := session.Run(fmt.Sprintf("cat %s", Quote(remotePath))); err != nil {
		return fmt.Errorf("fetching %s: %w, stderr: %s", remotePath, err, stderr.String())
	}
	return nil
}

func (c *sshClient) WaitForPort(ctx context.Context, state PortState, delay, interval, timeout time.Duration) error {
	c.log.Infof("Waiting for %s port %s (delay=%s, interval=%s, timeout=%s)", c.config.Host, state, delay, interval, timeout)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := poll.BackoffWithContext(ctx, poll.Interval(interval), timeout, func(ctx context.Context) (bool, error) {
		conn, err := net.DialTimeout("tcp", c.addr(), probeTimeout)
		if err != nil {
			return state == PortDown, nil
		}
		conn.Close()
		return state == PortUp, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %s port %s: %w", c.config.Host, state, err)
	}
	return nil
}

func (c *sshClient) Platform(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.platform != "" {
		return c.platform, nil
	}

	stdout, err := Run(ctx, c, "show platform summary")
	if err != nil {
		return "", fmt.Errorf("reading platform summary: %w", err)
	}
	for _, line := range strings.Split(stdout, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "Platform:"); ok {
			c.platform = strings.TrimSpace(after)
			return c.platform, nil
		}
	}
	return "", fmt.Errorf("no platform line in summary output: %q", stdout)
}

func (c *sshClient) CriticalServicesStarted(ctx context.Context) bool {
	for _, service := range criticalServices {
		stdout, _, code := c.Execute(ctx, fmt.Sprintf("systemctl is-active %s", service))
		if code != 0 || strings.TrimSpace(stdout) != "active" {
			c.log.Debugf("Service %s not active yet", service)
			return false
		}
	}
	return true
}

type asyncCmd struct {
	client  *ssh.Client
	session *ssh.Session
	done    chan error

	mu     sync.Mutex
	closed bool
}

func (a *asyncCmd) Wait(timeout time.Duration) error {
	select {
	case err := <-a.done:
		a.close()
		return err
	case <-time.After(timeout):
		return fmt.Errorf("async command: %w", poll.ErrTimeout)
	}
}

func (a *asyncCmd) Terminate() error {
	err := a.session.Signal(ssh.SIGKILL)
	a.close()
	return err
}

func (a *asyncCmd) Close() error {
	a.close()
	return nil
}

func (a *asyncCmd) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.session.Close()
	a.client.Close()
}

func errorStr(err error, stderr *bytes.Buffer) string {
	if stderr.Len() > 0 {
		return stderr.String()
	}
	return err.Error()
}
