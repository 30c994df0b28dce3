// Package reconcile decides which firmware build a test run installs and
// which build serves as the rollback target.
package reconcile

import (
	"errors"
	"strings"

	"github.com/netlab-io/fwutil-harness/internal/component"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
)

// ErrNothingToInstall reports that no candidate build exists for the slot the
// decision selected. Downstream treats this as a skip, not a failure.
var ErrNothingToInstall = errors.New("no candidate build to install")

// Result is the immutable decision for one test run. It is computed exactly
// once and passed through the workflow; no step re-evaluates it.
type Result struct {
	IsLatestInstalled bool
	Component         string
	CurrentPath       string
	PathToInstall     string
	VersionToInstall  string
	PreviousVersion   string
}

// Decide compares the latest candidate against the live inventory entry.
// Prefix matching is used because installed version strings may carry extra
// suffix detail. When latest is already installed the run downgrades to the
// other build and remembers latest as the rollback target; otherwise it
// upgrades to latest with other as rollback.
func Decide(comp component.Component, candidates component.Candidates, entry inventory.Entry) (Result, error) {
	if candidates.LatestVersion == "" && candidates.OtherVersion == "" {
		return Result{}, ErrNothingToInstall
	}

	result := Result{Component: comp.Name()}
	result.IsLatestInstalled = candidates.LatestVersion != "" && strings.HasPrefix(entry.Version, candidates.LatestVersion)

	if result.IsLatestInstalled {
		result.CurrentPath = candidates.LatestPath
		result.PathToInstall = candidates.OtherPath
		result.VersionToInstall = candidates.OtherVersion
		result.PreviousVersion = candidates.LatestVersion
	} else {
		result.CurrentPath = candidates.OtherPath
		result.PathToInstall = candidates.LatestPath
		result.VersionToInstall = candidates.LatestVersion
		result.PreviousVersion = candidates.OtherVersion
	}

	if result.PathToInstall == "" {
		return Result{}, ErrNothingToInstall
	}
	return result, nil
}
