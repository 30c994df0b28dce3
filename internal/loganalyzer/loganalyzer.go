// Package loganalyzer scopes a remote command execution to a syslog window
// and asserts that exactly one expected pattern shows up in it.
package loganalyzer

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

const defaultLogFile = "/var/log/syslog"

// ErrExpectedLogNotFound reports that the allowed pattern never appeared in
// the monitored window.
var ErrExpectedLogNotFound = errors.New("expected log pattern not found in monitored window")

// Analyzer wraps command executions with a start marker written to the DUT's
// syslog, then inspects only the lines after the marker.
type Analyzer struct {
	device  dut.Client
	logFile string
	log     *log.PrefixLogger
}

func New(device dut.Client, logger *log.PrefixLogger) *Analyzer {
	return &Analyzer{device: device, logFile: defaultLogFile, log: logger}
}

// ExpectLog runs fn under a monitoring scope configured with a single
// expected pattern. fn's own error is returned as-is; otherwise the scoped
// log window must match the pattern or ErrExpectedLogNotFound is returned.
func (a *Analyzer) ExpectLog(ctx context.Context, pattern string, fn func(context.Context) error) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling expected pattern %q: %w", pattern, err)
	}

	marker := fmt.Sprintf("fwharness-start-%s", uuid.New().String())
	if _, err := dut.Run(ctx, a.device, fmt.Sprintf("logger %s", marker)); err != nil {
		return fmt.Errorf("writing start marker: %w", err)
	}
	a.log.Debugf("Log window opened at marker %s", marker)

	if err := fn(ctx); err != nil {
		return err
	}

	window, err := dut.Run(ctx, a.device,
		fmt.Sprintf("sudo awk '/%s/{found=1;next} found' %s", marker, a.logFile))
	if err != nil {
		return fmt.Errorf("extracting log window: %w", err)
	}

	if !re.MatchString(window) {
		return fmt.Errorf("%w: %s", ErrExpectedLogNotFound, pattern)
	}
	return nil
}
