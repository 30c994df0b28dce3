package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netlab-io/fwutil-harness/internal/config"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

func TestDefaultConfigFileFromEnv(t *testing.T) {
	require := require.New(t)

	t.Setenv(config.EnvConfigFile, "/etc/fwharness/lab.yaml")
	require.Equal("/etc/fwharness/lab.yaml", DefaultGlobalOptions().ConfigFile)

	t.Setenv(config.EnvConfigFile, "")
	require.Equal(defaultConfigFile, DefaultGlobalOptions().ConfigFile)
}

func TestGlobalOptionsValidate(t *testing.T) {
	require := require.New(t)

	o := DefaultGlobalOptions()
	require.NoError(o.Validate(nil))

	o.RequestTimeout = -1
	require.Error(o.Validate(nil))
}

func TestUpdateOptionsValidate(t *testing.T) {
	require := require.New(t)

	o := DefaultUpdateOptions()
	require.NoError(o.Validate([]string{"BIOS"}))

	o.Image = "next"
	require.NoError(o.Validate([]string{"BIOS"}))

	o.Image = "previous"
	require.ErrorContains(o.Validate([]string{"BIOS"}), "image must be one of")
}

func TestSelectComponents(t *testing.T) {
	require := require.New(t)

	platformsFile := filepath.Join(t.TempDir(), "platforms.yaml")
	require.NoError(os.WriteFile(platformsFile, []byte("x86_64-testbox-r0: \"BIOS, CPLD\"\n"), 0o600))
	partNumbersFile := filepath.Join(t.TempDir(), "part_numbers.yaml")
	require.NoError(os.WriteFile(partNumbersFile, []byte("x86_64-testbox-r0: CPLD000123\n"), 0o600))

	s := &session{
		cfg: &config.Config{
			PlatformsFile:   platformsFile,
			PartNumbersFile: partNumbersFile,
		},
		platform: "x86_64-testbox-r0",
		log:      log.NewPrefixLogger("test"),
	}

	all, err := s.selectComponents(nil)
	require.NoError(err)
	require.Len(all, 2)

	one, err := s.selectComponents([]string{"BIOS"})
	require.NoError(err)
	require.Len(one, 1)
	require.Equal("BIOS", one[0].Name())

	// narrowing must not disturb the platform's full set
	all, err = s.selectComponents(nil)
	require.NoError(err)
	require.Len(all, 2)

	_, err = s.selectComponents([]string{"PSU"})
	require.ErrorContains(err, "not supported on platform")
}

func TestCommandWiring(t *testing.T) {
	require := require.New(t)

	root := NewFwharnessCommand()
	for _, name := range []string{"status", "images", "reconcile", "install", "update"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(err)
		require.Equal(name, cmd.Name())
	}
}
