package dut

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	Client
	stdout string
	stderr string
	code   int
}

func (s *scriptedClient) Execute(ctx context.Context, command string) (string, string, int) {
	return s.stdout, s.stderr, s.code
}

func TestRun(t *testing.T) {
	t.Run("returns stdout on success", func(t *testing.T) {
		require := require.New(t)
		out, err := Run(context.Background(), &scriptedClient{stdout: "ok\n"}, "true")
		require.NoError(err)
		require.Equal("ok\n", out)
	})

	t.Run("wraps non-zero exits in ExitError", func(t *testing.T) {
		require := require.New(t)
		_, err := Run(context.Background(), &scriptedClient{stderr: "no such command\n", code: 2}, "fwutil bogus")
		var exitErr *ExitError
		require.ErrorAs(err, &exitErr)
		require.Equal(2, exitErr.Code)
		require.Equal("fwutil bogus", exitErr.Command)
		require.Contains(exitErr.Error(), "no such command")
	})
}

func TestQuote(t *testing.T) {
	require := require.New(t)
	require.Equal("'/tmp/a b'", Quote("/tmp/a b"))
	require.Equal(`'it'\''s'`, Quote("it's"))
}
