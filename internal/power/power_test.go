package power

import (
	"context"
	"testing"

	"github.com/netlab-io/fwutil-harness/internal/dut/duttest"
	"github.com/netlab-io/fwutil-harness/pkg/log"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	commands  []string
	responses map[string]string
	failing   map[string]bool
}

func (f *fakeRunner) Execute(ctx context.Context, command string) (string, string, int) {
	f.commands = append(f.commands, command)
	if f.failing[command] {
		return "", "pdu error", 1
	}
	return f.responses[command], "", 0
}

func pduConfig() Config {
	return Config{
		Outlets:       []string{"a1", "a2"},
		StatusCommand: "olStatus %s",
		OnCommand:     "olOn %s",
		OffCommand:    "olOff %s",
	}
}

func TestPDU(t *testing.T) {
	logger := log.NewPrefixLogger("test")

	t.Run("reads outlet status", func(t *testing.T) {
		require := require.New(t)
		runner := &fakeRunner{responses: map[string]string{
			"olStatus a1": "Outlet a1: On",
			"olStatus a2": "Outlet a2: Off",
		}}
		ctrl, err := NewPDU(runner, pduConfig(), logger)
		require.NoError(err)

		status, err := ctrl.Status(context.Background())
		require.NoError(err)
		require.Equal([]PSUStatus{{ID: "a1", On: true}, {ID: "a2", On: false}}, status)
	})

	t.Run("surfaces command failures", func(t *testing.T) {
		require := require.New(t)
		runner := &fakeRunner{failing: map[string]bool{"olOff a1": true}}
		ctrl, err := NewPDU(runner, pduConfig(), logger)
		require.NoError(err)
		require.Error(ctrl.TurnOff(context.Background(), "a1"))
	})

	t.Run("rejects incomplete config", func(t *testing.T) {
		require := require.New(t)
		_, err := NewPDU(&fakeRunner{}, Config{Outlets: []string{"a1"}}, logger)
		require.Error(err)
		_, err = NewPDU(&fakeRunner{}, Config{StatusCommand: "s %s", OnCommand: "on %s", OffCommand: "off %s"}, logger)
		require.Error(err)
	})
}

type fakeController struct {
	on      map[string]bool
	toggles []string
}

func (f *fakeController) Status(ctx context.Context) ([]PSUStatus, error) {
	return []PSUStatus{{ID: "a1", On: f.on["a1"]}, {ID: "a2", On: f.on["a2"]}}, nil
}

func (f *fakeController) TurnOn(ctx context.Context, id string) error {
	f.on[id] = true
	f.toggles = append(f.toggles, "on "+id)
	return nil
}

func (f *fakeController) TurnOff(ctx context.Context, id string) error {
	f.on[id] = false
	f.toggles = append(f.toggles, "off "+id)
	return nil
}

func TestCycle(t *testing.T) {
	require := require.New(t)
	ctrl := &fakeController{on: map[string]bool{"a1": true, "a2": false}}

	err := Cycle(context.Background(), ctrl, 0, 0, log.NewPrefixLogger("test"))
	require.NoError(err)
	// only the supply that was on is switched off; both end up on
	require.Equal([]string{"off a1", "on a1", "on a2"}, ctrl.toggles)
	require.True(ctrl.on["a1"])
	require.True(ctrl.on["a2"])
}

func TestNumPSUs(t *testing.T) {
	require := require.New(t)

	device := duttest.New()
	device.Responses["sudo psuutil numpsus"] = duttest.Response{Stdout: "2\n"}
	n, err := NumPSUs(context.Background(), device)
	require.NoError(err)
	require.Equal(2, n)

	device = duttest.New()
	device.Responses["sudo psuutil numpsus"] = duttest.Response{Stdout: "garbage"}
	_, err = NumPSUs(context.Background(), device)
	require.Error(err)

	device = duttest.New()
	device.Responses["sudo psuutil numpsus"] = duttest.Response{Stderr: "no such utility", Code: 1}
	_, err = NumPSUs(context.Background(), device)
	require.Error(err)
}
