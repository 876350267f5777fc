package supervisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgsOrdersWorkersAndOptions(t *testing.T) {
	cfg, err := ParseArgs([]string{"-I", "2", "-c", "0x3", "net_thread", "-m", "5", "fluff_thread", "-o", "NETSTAT=ready", "-o", "BINDHOST"})
	require.NoError(t, err)

	require.Equal(t, 2, cfg.InstanceID)
	require.Equal(t, []string{"net_thread", "fluff_thread"}, cfg.Workers)
	require.Equal(t, uint64(0x3), cfg.Affinity[0])
	require.Equal(t, 5, cfg.Priority[1])
	require.Equal(t, "ready", cfg.Options["NETSTAT"])
	require.Equal(t, "", cfg.Options["BINDHOST"])
}

func TestParseArgsListAndHelp(t *testing.T) {
	cfg, err := ParseArgs([]string{"-l"})
	require.NoError(t, err)
	require.True(t, cfg.List)

	cfg, err = ParseArgs([]string{"--help"})
	require.NoError(t, err)
	require.True(t, cfg.Help)
}

func TestParseArgsNoAffinityWithoutWorker(t *testing.T) {
	cfg, err := ParseArgs([]string{"net_thread"})
	require.NoError(t, err)
	require.Empty(t, cfg.Affinity)
	require.Empty(t, cfg.Priority)
}

func TestParseArgsRejectsBadMask(t *testing.T) {
	_, err := ParseArgs([]string{"-c", "not-a-number", "net_thread"})
	require.Error(t, err)
}
