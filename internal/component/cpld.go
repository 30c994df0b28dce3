package component

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	cpldPayloadExt = ".vme"
	cpldMajorWidth = 2
	cpldMinorWidth = 5
)

type cpld struct {
	name       string
	platform   string
	partNumber string
}

func (c *cpld) Name() string {
	return c.name
}

func (c *cpld) CompletionAction() Action {
	return ActionPowerCycle
}

func (c *cpld) ParseVersions(binariesDir, installedVersion string) (Candidates, error) {
	candidates := Candidates{}

	entries, err := os.ReadDir(binariesDir)
	if err != nil {
		return candidates, fmt.Errorf("reading binaries dir: %w", err)
	}

	latestPrefix := c.platform + "_" + latestMarker
	otherPrefix := c.platform + "_" + otherMarker
	for _, entry := range entries {
		switch {
		case strings.HasPrefix(entry.Name(), latestPrefix):
			candidates.LatestPath, candidates.LatestVersion, err = c.parseBuild(binariesDir, entry.Name())
		case strings.HasPrefix(entry.Name(), otherPrefix):
			candidates.OtherPath, candidates.OtherVersion, err = c.parseBuild(binariesDir, entry.Name())
		}
		if err != nil {
			return Candidates{}, err
		}
	}

	markInstalled(&candidates, installedVersion)
	return candidates, nil
}

// parseBuild resolves one build entry to its .vme payload and derives the
// version from the payload file name.
func (c *cpld) parseBuild(binariesDir, name string) (path string, version string, err error) {
	buildPath := filepath.Join(binariesDir, name)
	resolved, err := filepath.EvalSymlinks(buildPath)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", buildPath, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(buildPath)
		if err != nil {
			return "", "", fmt.Errorf("reading build dir %s: %w", buildPath, err)
		}
		found := false
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), cpldPayloadExt) {
				buildPath = filepath.Join(buildPath, entry.Name())
				resolved = buildPath
				found = true
				break
			}
		}
		if !found {
			return "", "", fmt.Errorf("no %s payload under %s", cpldPayloadExt, buildPath)
		}
	}

	version, err = c.parseVersion(filepath.Base(resolved))
	if err != nil {
		return "", "", err
	}
	return buildPath, version, nil
}

// parseVersion extracts <part>_<major><minor> from an uppercased file stem,
// e.g. ABC1234_0010500_burn.vme -> ABC1234_0010500. When the minor revision
// is zero the vendor drops the minor digits from the version string entirely,
// so the formatted version follows suit.
func (c *cpld) parseVersion(fileName string) (string, error) {
	stem := strings.ToUpper(strings.TrimSuffix(fileName, filepath.Ext(fileName)))

	idx := strings.Index(stem, c.partNumber)
	if idx < 0 {
		return "", fmt.Errorf("part number %s not present in file name %s", c.partNumber, fileName)
	}

	rest := strings.TrimPrefix(stem[idx+len(c.partNumber):], "_")
	digits := leadingDigits(rest)
	if len(digits) < cpldMajorWidth+cpldMinorWidth {
		return "", fmt.Errorf("file name %s carries no %d-digit revision after part number %s", fileName, cpldMajorWidth+cpldMinorWidth, c.partNumber)
	}

	major := digits[:cpldMajorWidth]
	minor := digits[cpldMajorWidth : cpldMajorWidth+cpldMinorWidth]
	if minor == strings.Repeat("0", cpldMinorWidth) {
		return fmt.Sprintf("%s_%s", c.partNumber, major), nil
	}
	return fmt.Sprintf("%s_%s%s", c.partNumber, major, minor), nil
}

func leadingDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}

func (c *cpld) Verify(targetVersion, installedVersion string) error {
	if installedVersion == "" {
		return fmt.Errorf("component %s reports no version, expected %s", c.name, targetVersion)
	}
	if !strings.HasPrefix(installedVersion, targetVersion) {
		return fmt.Errorf("component %s version mismatch: expected prefix %s, got %s", c.name, targetVersion, installedVersion)
	}
	return nil
}
