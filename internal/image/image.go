// Package image wraps the sonic_installer boot-image inventory: which image
// is booted now, which boots next, and what is available on disk.
package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/pkg/log"
	"github.com/samber/lo"
)

// Info is a snapshot of the DUT's boot images. It is fetched fresh before and
// after every reboot to confirm a boot state transition actually happened.
type Info struct {
	Current   string
	Next      string
	Available []string
}

// Alternate returns the first available image that is not the current one.
func (i Info) Alternate() (string, bool) {
	alternates := lo.Filter(i.Available, func(img string, _ int) bool {
		return img != i.Current
	})
	if len(alternates) == 0 {
		return "", false
	}
	return alternates[0], true
}

// ParseList reads `sonic_installer list` output.
func ParseList(output string) (Info, error) {
	info := Info{}
	inAvailable := false
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "Current:"):
			info.Current = strings.TrimSpace(strings.TrimPrefix(line, "Current:"))
		case strings.HasPrefix(line, "Next:"):
			info.Next = strings.TrimSpace(strings.TrimPrefix(line, "Next:"))
		case strings.HasPrefix(line, "Available:"):
			inAvailable = true
		case inAvailable:
			info.Available = append(info.Available, line)
		}
	}
	if info.Current == "" || info.Next == "" {
		return Info{}, fmt.Errorf("unexpected sonic_installer list output: %q", output)
	}
	return info, nil
}

// Manager drives sonic_installer on the DUT.
type Manager struct {
	device dut.Client
	log    *log.PrefixLogger
}

func NewManager(device dut.Client, logger *log.PrefixLogger) *Manager {
	return &Manager{device: device, log: logger}
}

func (m *Manager) List(ctx context.Context) (Info, error) {
	stdout, err := dut.Run(ctx, m.device, "sudo sonic_installer list")
	if err != nil {
		return Info{}, fmt.Errorf("listing images: %w", err)
	}
	return ParseList(stdout)
}

// SetDefault pins an image as the default boot target.
func (m *Manager) SetDefault(ctx context.Context, image string) error {
	m.log.Infof("Setting default boot image to %s", image)
	if _, err := dut.Run(ctx, m.device, fmt.Sprintf("sudo sonic_installer set_default %s", image)); err != nil {
		return fmt.Errorf("setting default image: %w", err)
	}
	return nil
}

// SetNextBoot selects the image for the next boot only.
func (m *Manager) SetNextBoot(ctx context.Context, image string) error {
	m.log.Infof("Setting next boot image to %s", image)
	if _, err := dut.Run(ctx, m.device, fmt.Sprintf("sudo sonic_installer set_next_boot %s", image)); err != nil {
		return fmt.Errorf("setting next boot image: %w", err)
	}
	return nil
}

// Install installs a second OS image from a path already on the device.
func (m *Manager) Install(ctx context.Context, path string) error {
	m.log.Infof("Installing image from %s", path)
	if _, err := dut.Run(ctx, m.device, fmt.Sprintf("sudo sonic_installer install -y %s", dut.Quote(path))); err != nil {
		return fmt.Errorf("installing image: %w", err)
	}
	return nil
}
