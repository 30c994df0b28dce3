// Package descriptor manages the platform_components.json file the update
// command reads on the DUT: generation of valid and deliberately corrupted
// documents, and the backup/restore discipline around tests that overwrite
// the device's copy.
package descriptor

import (
	"encoding/json"
	"fmt"
	"path"
)

const (
	deviceDir = "/usr/share/sonic/device"
	fileName  = "platform_components.json"

	chassisKey   = "chassis"
	componentKey = "component"
)

// Error classifications the DUT's schema validator reports on stderr. The
// validator must discriminate between these, not report a generic parse
// error.
const (
	InvalidChassisSchemaLog   = `.*Error: Invalid chassis schema.*`
	InvalidPlatformSchemaLog  = `.*Error: Invalid platform schema.*`
	InvalidComponentSchemaLog = `.*Error: Invalid component schema.*`
)

// Path returns the descriptor location for a platform on the DUT.
func Path(platform string) string {
	return path.Join(deviceDir, platform, fileName)
}

// Firmware is one component stanza of the descriptor.
type Firmware struct {
	Firmware string `json:"firmware,omitempty"`
	Version  string `json:"version,omitempty"`
	Info     string `json:"info,omitempty"`
}

// Generate produces a valid descriptor for the platform. firmware maps
// component name to its stanza; components without an entry get an empty
// stanza.
func Generate(platform string, components []string, firmware map[string]Firmware) ([]byte, error) {
	componentMap := map[string]any{}
	for _, name := range components {
		if fw, ok := firmware[name]; ok {
			componentMap[name] = fw
		} else {
			componentMap[name] = map[string]any{}
		}
	}
	return marshal(chassisKey, platform, componentMap)
}

// Corruption selects which part of the descriptor to deliberately break.
type Corruption string

const (
	// CorruptChassisKey renames the top-level chassis key.
	CorruptChassisKey Corruption = "chassis-key"
	// CorruptPlatformKey replaces the platform identifier.
	CorruptPlatformKey Corruption = "platform-key"
	// CorruptComponentShape turns a component version into an object where a
	// scalar is required.
	CorruptComponentShape Corruption = "component-shape"
)

// ExpectedFailure is the stderr classification the update command must report
// for this corruption. A corrupted chassis key surfaces as an invalid
// platform schema and vice versa: the validator descends chassis-first, so
// the missing chassis key makes the whole platform stanza unresolvable.
func (c Corruption) ExpectedFailure() string {
	switch c {
	case CorruptChassisKey:
		return InvalidPlatformSchemaLog
	case CorruptPlatformKey:
		return InvalidChassisSchemaLog
	case CorruptComponentShape:
		return InvalidComponentSchemaLog
	default:
		return ""
	}
}

// GenerateInvalid produces a descriptor with exactly one corruption applied.
// Generation is deterministic: the same corruption kind always yields the
// same document.
func GenerateInvalid(platform string, components []string, kind Corruption) ([]byte, error) {
	chassis := chassisKey
	platformName := platform
	componentMap := map[string]any{}
	for _, name := range components {
		componentMap[name] = map[string]any{}
	}

	switch kind {
	case CorruptChassisKey:
		chassis = "INVALID_CHASSIS"
	case CorruptPlatformKey:
		platformName = "INVALID_PLATFORM"
	case CorruptComponentShape:
		for _, name := range components {
			componentMap[name] = map[string]any{
				"version": map[string]any{"version": "invalid_version"},
			}
		}
	default:
		return nil, fmt.Errorf("unknown corruption kind %q", kind)
	}

	return marshal(chassis, platformName, componentMap)
}

func marshal(chassis, platform string, componentMap map[string]any) ([]byte, error) {
	doc := map[string]any{
		chassis: map[string]any{
			platform: map[string]any{
				componentKey: componentMap,
			},
		},
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshaling descriptor: %w", err)
	}
	return append(out, '\n'), nil
}
