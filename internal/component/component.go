// Package component models the firmware-bearing units of the DUT. Each kind
// knows how to locate its candidate builds on disk, which physical action
// activates a newly written image, and how to verify an installed version.
package component

import (
	"errors"
	"fmt"
	"strings"
)

const (
	latestMarker = "latest"
	otherMarker  = "other"
)

var (
	// ErrUnknownComponent reports a component name with no registered kind.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrPartNumberMissing reports a platform without a CPLD part-number
	// mapping entry.
	ErrPartNumberMissing = errors.New("part number not found for platform")
)

// Action is the completion step required after the install command succeeds.
// The new firmware is not active until this physical action completes.
type Action string

const (
	ActionColdReboot Action = "cold-reboot"
	ActionPowerCycle Action = "power-cycle"
)

// Candidates are the two firmware builds staged for one component. A missing
// file for a slot yields an empty candidate, never an error by itself.
type Candidates struct {
	LatestVersion   string
	LatestPath      string
	LatestInstalled bool
	OtherVersion    string
	OtherPath       string
	OtherInstalled  bool
}

// Component is the kind-specific behavior, selected once per run from the
// component name and never re-derived mid-workflow.
type Component interface {
	Name() string
	// ParseVersions scans binariesDir for this platform's latest and other
	// builds and marks which one, if any, matches the installed version.
	ParseVersions(binariesDir, installedVersion string) (Candidates, error)
	// CompletionAction is the physical step that activates new firmware.
	CompletionAction() Action
	// Verify checks an installed version against the expected target.
	Verify(targetVersion, installedVersion string) error
}

// New selects the component kind for a name. partNumbers maps platform
// identifier to the CPLD vendor part number; it is only consulted for CPLD
// components, where a missing entry is a fatal configuration error.
func New(name, platform string, partNumbers map[string]string) (Component, error) {
	switch strings.ToUpper(name) {
	case "BIOS":
		return &bios{name: name, platform: platform}, nil
	case "CPLD":
		partNumber, ok := partNumbers[platform]
		if !ok || partNumber == "" {
			return nil, fmt.Errorf("%w %s", ErrPartNumberMissing, platform)
		}
		return &cpld{name: name, platform: platform, partNumber: strings.ToUpper(partNumber)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
}

// markInstalled sets the installed flag on at most one candidate, preferring
// latest when both would match.
func markInstalled(c *Candidates, installedVersion string) {
	if c.LatestVersion != "" && strings.HasPrefix(installedVersion, c.LatestVersion) {
		c.LatestInstalled = true
		return
	}
	if c.OtherVersion != "" && strings.HasPrefix(installedVersion, c.OtherVersion) {
		c.OtherInstalled = true
	}
}
