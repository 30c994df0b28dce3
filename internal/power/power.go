// Package power controls the DUT's power supplies through a lab PDU. A timed
// full power cycle is the completion action for CPLD updates: the new image
// only activates once every supply has been off for the hold interval.
package power

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

// switchSettle is slept after toggling each individual supply.
const switchSettle = 5 * time.Second

// PSUStatus is the observed state of one supply outlet.
type PSUStatus struct {
	ID string
	On bool
}

// Controller switches the DUT's supplies from outside the DUT. It must not
// depend on the DUT being up.
type Controller interface {
	Status(ctx context.Context) ([]PSUStatus, error)
	TurnOn(ctx context.Context, id string) error
	TurnOff(ctx context.Context, id string) error
}

// NumPSUs asks the DUT how many supplies it has. A failure here aborts the
// power-cycle path before anything is switched off.
func NumPSUs(ctx context.Context, device dut.Client) (int, error) {
	stdout, err := dut.Run(ctx, device, "sudo psuutil numpsus")
	if err != nil {
		return 0, fmt.Errorf("reading PSU count: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		return 0, fmt.Errorf("unexpected psuutil numpsus output %q: %w", stdout, err)
	}
	return n, nil
}

// Cycle turns off every supply that is on, holds for the settle interval, and
// turns the supplies back on.
func Cycle(ctx context.Context, ctrl Controller, hold, settle time.Duration, logger *log.PrefixLogger) error {
	status, err := ctrl.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading PSU status: %w", err)
	}

	for _, psu := range status {
		if !psu.On {
			continue
		}
		logger.Infof("Turning off PSU %s", psu.ID)
		if err := ctrl.TurnOff(ctx, psu.ID); err != nil {
			return fmt.Errorf("turning off PSU %s: %w", psu.ID, err)
		}
		if err := sleep(ctx, settle); err != nil {
			return err
		}
	}

	logger.Infof("Holding power off for %s", hold)
	if err := sleep(ctx, hold); err != nil {
		return err
	}

	status, err = ctrl.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading PSU status after hold: %w", err)
	}
	for _, psu := range status {
		if psu.On {
			continue
		}
		logger.Infof("Turning on PSU %s", psu.ID)
		if err := ctrl.TurnOn(ctx, psu.ID); err != nil {
			return fmt.Errorf("turning on PSU %s: %w", psu.ID, err)
		}
		if err := sleep(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
