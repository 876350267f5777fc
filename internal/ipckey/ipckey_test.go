package ipckey

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabufAndStatusKeysDiffer(t *testing.T) {
	os.Unsetenv(envDatabufKey)
	os.Unsetenv(envStatusKey)
	os.Setenv(envKeyfile, t.TempDir())
	defer os.Unsetenv(envKeyfile)

	dk, err := DatabufKey(3)
	require.NoError(t, err)
	sk, err := StatusKey(3)
	require.NoError(t, err)
	require.NotEqual(t, dk, sk, "databuf and status keys must differ for the same instance")
}

func TestInstanceIDIsMaskedTo6Bits(t *testing.T) {
	os.Unsetenv(envDatabufKey)
	os.Setenv(envKeyfile, t.TempDir())
	defer os.Unsetenv(envKeyfile)

	a, err := DatabufKey(5)
	require.NoError(t, err)
	b, err := DatabufKey(5 + 64)
	require.NoError(t, err)
	require.Equal(t, a, b, "instance ids congruent mod 64 must resolve to the same key")
}

func TestEnvOverrideTakesPriority(t *testing.T) {
	os.Setenv(envDatabufKey, "0x1234")
	defer os.Unsetenv(envDatabufKey)

	k, err := DatabufKey(9)
	require.NoError(t, err)
	require.Equal(t, int32(0x1234), k)
}

func TestKeyfileEnvOverridesHome(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv(envDatabufKey)
	os.Setenv(envKeyfile, dir)
	defer os.Unsetenv(envKeyfile)

	k1, err := DatabufKey(1)
	require.NoError(t, err)

	other := t.TempDir()
	os.Setenv(envKeyfile, other)
	k2, err := DatabufKey(1)
	require.NoError(t, err)

	require.NotEqual(t, k1, k2, "different keyfile paths must resolve to different keys")
}

func TestUnavailableKeyfileErrors(t *testing.T) {
	os.Unsetenv(envDatabufKey)
	os.Setenv(envKeyfile, "/nonexistent/path/that/should/not/exist")
	defer os.Unsetenv(envKeyfile)

	_, err := DatabufKey(1)
	require.Error(t, err)
}
