package component

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const biosPayloadExt = ".rom"

type bios struct {
	name     string
	platform string
}

func (b *bios) Name() string {
	return b.name
}

func (b *bios) CompletionAction() Action {
	return ActionColdReboot
}

func (b *bios) ParseVersions(binariesDir, installedVersion string) (Candidates, error) {
	candidates := Candidates{}

	entries, err := os.ReadDir(binariesDir)
	if err != nil {
		return candidates, fmt.Errorf("reading binaries dir: %w", err)
	}

	latestPrefix := b.platform + "_" + latestMarker
	otherPrefix := b.platform + "_" + otherMarker
	for _, entry := range entries {
		switch {
		case strings.HasPrefix(entry.Name(), latestPrefix):
			candidates.LatestPath, candidates.LatestVersion, err = b.parseBuild(binariesDir, entry.Name())
		case strings.HasPrefix(entry.Name(), otherPrefix):
			candidates.OtherPath, candidates.OtherVersion, err = b.parseBuild(binariesDir, entry.Name())
		}
		if err != nil {
			return Candidates{}, err
		}
	}

	markInstalled(&candidates, installedVersion)
	return candidates, nil
}

// parseBuild resolves one build directory. The version is the name of the
// release directory the build links into, with the trailing `x` placeholder
// normalized to `0`. The payload is the first .rom file inside.
func (b *bios) parseBuild(binariesDir, name string) (path string, version string, err error) {
	buildDir := filepath.Join(binariesDir, name)
	resolved, err := filepath.EvalSymlinks(buildDir)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", buildDir, err)
	}

	version = normalizeVersion(filepath.Base(filepath.Dir(resolved)))

	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return "", "", fmt.Errorf("reading build dir %s: %w", buildDir, err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), biosPayloadExt) {
			return filepath.Join(buildDir, entry.Name()), version, nil
		}
	}
	return "", "", fmt.Errorf("no %s payload under %s", biosPayloadExt, buildDir)
}

// normalizeVersion replaces the last `x` placeholder with the normalization
// digit, e.g. 0ACLH004_02.02.00x -> 0ACLH004_02.02.000.
func normalizeVersion(version string) string {
	if i := strings.LastIndex(version, "x"); i >= 0 {
		return version[:i] + "0" + version[i+1:]
	}
	return version
}

func (b *bios) Verify(targetVersion, installedVersion string) error {
	if installedVersion == "" {
		return fmt.Errorf("component %s reports no version, expected %s", b.name, targetVersion)
	}
	if !strings.HasPrefix(installedVersion, targetVersion) {
		return fmt.Errorf("component %s version mismatch: expected prefix %s, got %s", b.name, targetVersion, installedVersion)
	}
	return nil
}
