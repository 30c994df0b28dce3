// Package workflow sequences a firmware update attempt on the DUT: stage the
// payload, issue the install or update command under log monitoring, drive
// the component's completion action through a reboot or power cycle, and
// verify the resulting inventory.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/netlab-io/fwutil-harness/internal/component"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
	"github.com/netlab-io/fwutil-harness/internal/power"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
	"github.com/netlab-io/fwutil-harness/pkg/log"
	"github.com/netlab-io/fwutil-harness/pkg/poll"
)

// SuccessLogPattern is the single log line the install command must emit.
const SuccessLogPattern = `.*Firmware install ended.*status=success.*`

// State is the observable position of an update attempt.
type State string

const (
	StateIdle                     State = "Idle"
	StateStagingFile              State = "StagingFile"
	StateCommandIssued            State = "CommandIssued"
	StateAwaitingPostUpdateAction State = "AwaitingPostUpdateAction"
	StateVerifying                State = "Verifying"
	StateSucceeded                State = "Succeeded"
	StateFailed                   State = "Failed"
)

// Mode selects the command under test.
type Mode string

const (
	// ModeInstall drives `fwutil install` with an explicit payload path.
	ModeInstall Mode = "install"
	// ModeUpdateCurrent drives `fwutil update -y` against the booted image.
	ModeUpdateCurrent Mode = "update-current"
	// ModeUpdateNext drives `fwutil update -y --image=next`.
	ModeUpdateNext Mode = "update-next"
)

// Timings bound the liveness waits of the workflow. Production runs use
// Default; unit tests shrink everything.
type Timings struct {
	PortDownTimeout  time.Duration
	PortUpDelay      time.Duration
	PortUpTimeout    time.Duration
	PortPollInterval time.Duration
	ServicesTimeout  time.Duration
	ServicesInterval time.Duration
	SettleDelay      time.Duration
	PowerCycleHold   time.Duration
	PSUSettle        time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		PortDownTimeout:  180 * time.Second,
		PortUpDelay:      10 * time.Second,
		PortUpTimeout:    300 * time.Second,
		PortPollInterval: 10 * time.Second,
		ServicesTimeout:  300 * time.Second,
		ServicesInterval: 30 * time.Second,
		SettleDelay:      30 * time.Second,
		PowerCycleHold:   30 * time.Second,
		PSUSettle:        5 * time.Second,
	}
}

// Analyzer is the log-monitoring collaborator wrapping the update command.
type Analyzer interface {
	ExpectLog(ctx context.Context, pattern string, fn func(context.Context) error) error
}

// Orchestrator runs update attempts for one component. The component kind is
// selected once at construction and never re-derived mid-workflow.
type Orchestrator struct {
	device   dut.Client
	analyzer Analyzer
	power    power.Controller
	comp     component.Component
	timings  Timings
	log      *log.PrefixLogger

	state State
}

type Option func(*Orchestrator)

func WithTimings(t Timings) Option {
	return func(o *Orchestrator) {
		o.timings = t
	}
}

func New(device dut.Client, analyzer Analyzer, powerCtrl power.Controller, comp component.Component, logger *log.PrefixLogger, options ...Option) *Orchestrator {
	o := &Orchestrator{
		device:   device,
		analyzer: analyzer,
		power:    powerCtrl,
		comp:     comp,
		timings:  DefaultTimings(),
		log:      logger,
		state:    StateIdle,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	return o.state
}

// StagePath is the device path a component's payload is staged at. The
// dual-image workflow relies on it being deterministic so the synthetic
// descriptor can point at the payload before the update runs.
func StagePath(result reconcile.Result) string {
	return path.Join(StageDir(result), filepath.Base(result.PathToInstall))
}

// StageDir is the staging directory for a component's payload.
func StageDir(result reconcile.Result) string {
	return path.Join("/tmp", "fwutil-"+strings.ToLower(result.Component))
}

// Run executes one update attempt. The staged payload is removed on every
// exit path.
func (o *Orchestrator) Run(ctx context.Context, result reconcile.Result, mode Mode) (err error) {
	o.log.Infof("Starting %s workflow for %s: %s -> %s", mode, result.Component, result.PreviousVersion, result.VersionToInstall)

	// reject a bad mode before anything touches the device
	command, err := o.command(result, mode)
	if err != nil {
		return o.fail(err)
	}

	stageDir := StageDir(result)
	defer func() {
		// guaranteed release of the staged payload, success or not
		if _, cleanupErr := dut.Run(ctx, o.device, fmt.Sprintf("rm -rf %s", dut.Quote(stageDir))); cleanupErr != nil {
			o.log.Errorf("Failed to remove staged firmware %s: %v", stageDir, cleanupErr)
		}
	}()

	o.state = StateStagingFile
	if _, err := dut.Run(ctx, o.device, fmt.Sprintf("mkdir -p %s", dut.Quote(stageDir))); err != nil {
		return o.fail(fmt.Errorf("creating staging dir: %w", err))
	}
	if err := o.device.Copy(ctx, result.PathToInstall, StagePath(result)); err != nil {
		return o.fail(fmt.Errorf("staging firmware: %w", err))
	}

	o.state = StateCommandIssued
	err = o.analyzer.ExpectLog(ctx, SuccessLogPattern, func(ctx context.Context) error {
		_, runErr := dut.Run(ctx, o.device, command)
		return runErr
	})
	if err != nil {
		// fatal before any reboot is attempted
		return o.fail(fmt.Errorf("update command: %w", err))
	}

	o.state = StateAwaitingPostUpdateAction
	switch action := o.comp.CompletionAction(); action {
	case component.ActionColdReboot:
		err = o.ColdReboot(ctx)
	case component.ActionPowerCycle:
		err = o.powerCycle(ctx)
	default:
		err = fmt.Errorf("unknown completion action %q", action)
	}
	if err != nil {
		return o.fail(err)
	}
	if err := o.waitReady(ctx); err != nil {
		return o.fail(err)
	}

	o.state = StateVerifying
	stdout, err := dut.Run(ctx, o.device, "sudo fwutil show status")
	if err != nil {
		return o.fail(fmt.Errorf("reading inventory: %w", err))
	}
	status, err := inventory.Parse(stdout)
	if err != nil {
		return o.fail(err)
	}
	// a missing version is an installation failure, not "component not found"
	if err := o.comp.Verify(result.VersionToInstall, status[result.Component].Version); err != nil {
		return o.fail(err)
	}

	o.state = StateSucceeded
	o.log.Infof("Component %s now at %s", result.Component, result.VersionToInstall)
	return nil
}

func (o *Orchestrator) fail(err error) error {
	o.state = StateFailed
	return err
}

func (o *Orchestrator) command(result reconcile.Result, mode Mode) (string, error) {
	switch mode {
	case ModeInstall:
		return fmt.Sprintf("sudo fwutil install chassis component %s fw -y %s", result.Component, dut.Quote(StagePath(result))), nil
	case ModeUpdateCurrent:
		return "sudo fwutil update -y", nil
	case ModeUpdateNext:
		return "sudo fwutil update -y --image=next", nil
	default:
		return "", fmt.Errorf("unknown workflow mode %q", mode)
	}
}

// ColdReboot issues a non-blocking reboot and waits out the down/up cycle.
// If the device never goes down, one best-effort recovery kills the stuck
// reboot before the up-wait proceeds; secondary errors during that recovery
// are logged, not raised.
func (o *Orchestrator) ColdReboot(ctx context.Context) error {
	o.log.Infof("Cold rebooting %s", o.device.Host())
	handle, err := o.device.ExecuteAsync(ctx, "sudo reboot")
	if err != nil {
		return fmt.Errorf("issuing reboot: %w", err)
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			o.log.Errorf("Failed to close reboot command handle: %v", closeErr)
		}
	}()

	if err := o.device.WaitForPort(ctx, dut.PortDown, 0, o.timings.PortPollInterval, o.timings.PortDownTimeout); err != nil {
		if !errors.Is(err, poll.ErrTimeout) {
			return err
		}
		o.log.Errorf("Device did not go down, killing any stuck reboot task")
		o.recoverStuckReboot(ctx, handle)
	}

	if err := o.device.WaitForPort(ctx, dut.PortUp, o.timings.PortUpDelay, o.timings.PortPollInterval, o.timings.PortUpTimeout); err != nil {
		return fmt.Errorf("device did not come back after reboot: %w", err)
	}
	return nil
}

func (o *Orchestrator) recoverStuckReboot(ctx context.Context, handle dut.AsyncHandle) {
	pids, err := dut.Run(ctx, o.device, "pgrep -f 'sudo reboot'")
	if err != nil {
		o.log.Errorf("Failed to find stuck reboot process: %v", err)
	} else if pids = strings.TrimSpace(pids); pids != "" {
		if _, err := dut.Run(ctx, o.device, fmt.Sprintf("sudo kill -9 %s", strings.Join(strings.Fields(pids), " "))); err != nil {
			o.log.Errorf("Failed to kill stuck reboot process: %v", err)
		}
	}
	if err := handle.Terminate(); err != nil {
		o.log.Errorf("Failed to terminate reboot command handle: %v", err)
	}
}

// powerCycle cuts all supplies, holds, and powers back on; required because
// new CPLD firmware only activates from a cold power state.
func (o *Orchestrator) powerCycle(ctx context.Context) error {
	n, err := power.NumPSUs(ctx, o.device)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("device reports %d PSUs", n)
	}
	if o.power == nil {
		return fmt.Errorf("no PSU controller configured for %s", o.device.Host())
	}
	o.log.Infof("Power cycling %s (%d PSUs, hold %s)", o.device.Host(), n, o.timings.PowerCycleHold)

	if err := power.Cycle(ctx, o.power, o.timings.PowerCycleHold, o.timings.PSUSettle, o.log); err != nil {
		return err
	}
	if err := o.device.WaitForPort(ctx, dut.PortUp, o.timings.PortUpDelay, o.timings.PortPollInterval, o.timings.PortUpTimeout); err != nil {
		return fmt.Errorf("device did not come back after power cycle: %w", err)
	}
	return nil
}

// waitReady blocks until all critical services report started, then applies
// one more settle delay: service readiness does not guarantee the hardware
// finished re-initializing.
func (o *Orchestrator) waitReady(ctx context.Context) error {
	o.log.Infof("Waiting for critical services on %s", o.device.Host())
	err := poll.BackoffWithContext(ctx, poll.Interval(o.timings.ServicesInterval), o.timings.ServicesTimeout, func(ctx context.Context) (bool, error) {
		return o.device.CriticalServicesStarted(ctx), nil
	})
	if err != nil {
		return fmt.Errorf("critical services did not start: %w", err)
	}

	select {
	case <-time.After(o.timings.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ExpectCommandFailure runs a command that must fail with a recognizable
// error classification on stderr.
func (o *Orchestrator) ExpectCommandFailure(ctx context.Context, command, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling expected pattern %q: %w", pattern, err)
	}

	stdout, stderr, code := o.device.Execute(ctx, command)
	if code == 0 {
		return fmt.Errorf("command %q succeeded, expected failure matching %s", command, pattern)
	}
	if !re.MatchString(stderr) && !re.MatchString(stdout) {
		return fmt.Errorf("command %q failed without expected marker %s, stderr: %s", command, pattern, strings.TrimSpace(stderr))
	}
	return nil
}
