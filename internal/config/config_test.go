package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirFileJoinsUnderDir(t *testing.T) {
	dir, err := Dir()
	require.NoError(t, err)
	full, err := DirFile("wlmux.sock")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "wlmux.sock"), full)
}

func TestPidFileRoundTrip(t *testing.T) {
	require.NoError(t, WritePidFile())
	path, err := DirFile("wlproxyd.pid")
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "expected pid file to exist")

	require.NoError(t, RemovePidFile())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected pid file removed")

	// a second remove is a no-op, not an error.
	require.NoError(t, RemovePidFile())
}
