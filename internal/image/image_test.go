package image

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	t.Run("parses current, next and available images", func(t *testing.T) {
		require := require.New(t)
		output := "" +
			"Current: SONiC-OS-202311.1\n" +
			"Next: SONiC-OS-202311.1\n" +
			"Available:\n" +
			"SONiC-OS-202311.1\n" +
			"SONiC-OS-202211.0\n"

		info, err := ParseList(output)
		require.NoError(err)
		require.Equal("SONiC-OS-202311.1", info.Current)
		require.Equal("SONiC-OS-202311.1", info.Next)
		require.Equal([]string{"SONiC-OS-202311.1", "SONiC-OS-202211.0"}, info.Available)
	})

	t.Run("rejects output without current or next", func(t *testing.T) {
		require := require.New(t)
		_, err := ParseList("Available:\nSONiC-OS-202311.1\n")
		require.Error(err)
	})
}

func TestAlternate(t *testing.T) {
	require := require.New(t)

	info := Info{Current: "a", Next: "a", Available: []string{"a", "b"}}
	alt, ok := info.Alternate()
	require.True(ok)
	require.Equal("b", alt)

	single := Info{Current: "a", Next: "a", Available: []string{"a"}}
	_, ok = single.Alternate()
	require.False(ok)
}
