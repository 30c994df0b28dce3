// Package config loads the harness configuration: the DUT and PDU endpoints,
// the firmware binaries tree and the per-platform mapping files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/power"
	"sigs.k8s.io/yaml"
)

// EnvConfigFile points the test harness at a config file.
const EnvConfigFile = "FWHARNESS_CONFIG"

// ErrConfig tags fatal configuration errors: they abort immediately, no
// retry.
var ErrConfig = errors.New("configuration error")

type Config struct {
	// BinariesDir is the root of the versioned firmware payload tree.
	BinariesDir string `json:"binariesDir"`
	// PlatformsFile maps platform identifier to a comma-separated component
	// list.
	PlatformsFile string `json:"platformsFile"`
	// PartNumbersFile maps platform identifier to the CPLD vendor part
	// number.
	PartNumbersFile string `json:"partNumbersFile"`
	// SecondImagePath is the fallback OS image installed when the DUT has no
	// alternate boot image.
	SecondImagePath string `json:"secondImagePath,omitempty"`

	DUT dut.Config   `json:"dut"`
	PDU power.Config `json:"pdu,omitempty"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	config := &Config{}
	if err := yaml.UnmarshalStrict(raw, config); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromEnv loads the config file named by FWHARNESS_CONFIG.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrConfig, EnvConfigFile)
	}
	return Load(path)
}

func (c *Config) Validate() error {
	if c.BinariesDir == "" {
		return fmt.Errorf("%w: binariesDir is required", ErrConfig)
	}
	if c.PlatformsFile == "" {
		return fmt.Errorf("%w: platformsFile is required", ErrConfig)
	}
	if c.DUT.Host == "" || c.DUT.User == "" {
		return fmt.Errorf("%w: dut.host and dut.user are required", ErrConfig)
	}
	return nil
}

// ComponentsFor returns the expected component list for a platform, read
// from the platforms file. An entry looks like:
//
//	x86_64-mlnx_msn2010-r0: BIOS,CPLD
func (c *Config) ComponentsFor(platform string) ([]string, error) {
	platforms, err := loadStringMap(c.PlatformsFile)
	if err != nil {
		return nil, err
	}
	list, ok := platforms[platform]
	if !ok {
		return nil, fmt.Errorf("%w: platform %s not present in %s", ErrConfig, platform, c.PlatformsFile)
	}

	var components []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			components = append(components, name)
		}
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: platform %s has an empty component list", ErrConfig, platform)
	}
	return components, nil
}

// PartNumbers returns the platform to CPLD part-number mapping. The file is
// optional; components that need it fail later with a precise error.
func (c *Config) PartNumbers() (map[string]string, error) {
	if c.PartNumbersFile == "" {
		return map[string]string{}, nil
	}
	return loadStringMap(c.PartNumbersFile)
}

func loadStringMap(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	return out, nil
}
