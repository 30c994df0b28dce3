package loganalyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/netlab-io/fwutil-harness/internal/dut/duttest"
	"github.com/netlab-io/fwutil-harness/pkg/log"
	"github.com/stretchr/testify/require"
)

func analyzerWithWindow(window string) (*Analyzer, *duttest.Fake) {
	device := duttest.New()
	device.Script = func(command string) (duttest.Response, bool) {
		switch {
		case strings.HasPrefix(command, "logger "):
			return duttest.Response{}, true
		case strings.HasPrefix(command, "sudo awk "):
			return duttest.Response{Stdout: window}, true
		}
		return duttest.Response{}, false
	}
	return New(device, log.NewPrefixLogger("test")), device
}

func TestExpectLog(t *testing.T) {
	t.Run("passes when the pattern appears in the window", func(t *testing.T) {
		require := require.New(t)
		analyzer, device := analyzerWithWindow("Jan 1 fwutil: Firmware install ended, status=success\n")

		ran := false
		err := analyzer.ExpectLog(context.Background(), `.*Firmware install ended.*status=success.*`, func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(err)
		require.True(ran)
		require.True(device.Executed("logger fwharness-start-"))
	})

	t.Run("reports a missing pattern as a distinct error kind", func(t *testing.T) {
		require := require.New(t)
		analyzer, _ := analyzerWithWindow("Jan 1 fwutil: nothing relevant\n")

		err := analyzer.ExpectLog(context.Background(), `.*status=success.*`, func(ctx context.Context) error {
			return nil
		})
		require.ErrorIs(err, ErrExpectedLogNotFound)
	})

	t.Run("returns the wrapped function error unchanged", func(t *testing.T) {
		require := require.New(t)
		analyzer, _ := analyzerWithWindow("")

		cmdErr := errors.New("exit status 1")
		err := analyzer.ExpectLog(context.Background(), `.*status=success.*`, func(ctx context.Context) error {
			return cmdErr
		})
		require.ErrorIs(err, cmdErr)
	})

	t.Run("rejects invalid patterns", func(t *testing.T) {
		require := require.New(t)
		analyzer, _ := analyzerWithWindow("")
		err := analyzer.ExpectLog(context.Background(), `([`, func(ctx context.Context) error { return nil })
		require.Error(err)
	})
}
