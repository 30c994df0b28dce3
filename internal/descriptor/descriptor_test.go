package descriptor

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const platform = "x86_64-mlnx_msn2010-r0"

var components = []string{"BIOS", "CPLD"}

func unmarshal(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestPath(t *testing.T) {
	require.Equal(t, "/usr/share/sonic/device/"+platform+"/platform_components.json", Path(platform))
}

func TestGenerate(t *testing.T) {
	require := require.New(t)
	raw, err := Generate(platform, components, map[string]Firmware{
		"BIOS": {Firmware: "/tmp/bios.rom", Version: "1.2.4"},
	})
	require.NoError(err)

	doc := unmarshal(t, raw)
	chassis, ok := doc["chassis"].(map[string]any)
	require.True(ok)
	platformDoc, ok := chassis[platform].(map[string]any)
	require.True(ok)
	componentDoc, ok := platformDoc["component"].(map[string]any)
	require.True(ok)

	bios, ok := componentDoc["BIOS"].(map[string]any)
	require.True(ok)
	require.Equal("/tmp/bios.rom", bios["firmware"])
	require.Equal("1.2.4", bios["version"])
	require.Equal(map[string]any{}, componentDoc["CPLD"])
}

func TestGenerateInvalid(t *testing.T) {
	t.Run("corrupts the chassis key", func(t *testing.T) {
		require := require.New(t)
		raw, err := GenerateInvalid(platform, components, CorruptChassisKey)
		require.NoError(err)

		doc := unmarshal(t, raw)
		require.Contains(doc, "INVALID_CHASSIS")
		require.NotContains(doc, "chassis")
	})

	t.Run("corrupts the platform key", func(t *testing.T) {
		require := require.New(t)
		raw, err := GenerateInvalid(platform, components, CorruptPlatformKey)
		require.NoError(err)

		chassis := unmarshal(t, raw)["chassis"].(map[string]any)
		require.Contains(chassis, "INVALID_PLATFORM")
		require.NotContains(chassis, platform)
	})

	t.Run("corrupts the component version shape", func(t *testing.T) {
		require := require.New(t)
		raw, err := GenerateInvalid(platform, components, CorruptComponentShape)
		require.NoError(err)

		componentDoc := unmarshal(t, raw)["chassis"].(map[string]any)[platform].(map[string]any)["component"].(map[string]any)
		bios := componentDoc["BIOS"].(map[string]any)
		_, isObject := bios["version"].(map[string]any)
		require.True(isObject, "version must be an object, not a scalar")
	})

	t.Run("is deterministic per corruption kind", func(t *testing.T) {
		require := require.New(t)
		for _, kind := range []Corruption{CorruptChassisKey, CorruptPlatformKey, CorruptComponentShape} {
			first, err := GenerateInvalid(platform, components, kind)
			require.NoError(err)
			second, err := GenerateInvalid(platform, components, kind)
			require.NoError(err)
			require.Empty(cmp.Diff(first, second))
		}
	})

	t.Run("rejects unknown corruption kinds", func(t *testing.T) {
		require := require.New(t)
		_, err := GenerateInvalid(platform, components, Corruption("typo"))
		require.Error(err)
	})
}

func TestExpectedFailure(t *testing.T) {
	require := require.New(t)
	// The validator descends chassis-first, so a broken chassis key reports
	// an invalid platform schema and a broken platform key reports an
	// invalid chassis schema.
	require.Equal(InvalidPlatformSchemaLog, CorruptChassisKey.ExpectedFailure())
	require.Equal(InvalidChassisSchemaLog, CorruptPlatformKey.ExpectedFailure())
	require.Equal(InvalidComponentSchemaLog, CorruptComponentShape.ExpectedFailure())

	seen := map[string]bool{}
	for _, kind := range []Corruption{CorruptChassisKey, CorruptPlatformKey, CorruptComponentShape} {
		failure := kind.ExpectedFailure()
		require.False(seen[failure], "classifications must be distinguishable")
		seen[failure] = true
	}
}
