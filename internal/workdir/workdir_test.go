package workdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alkime/drumtone/internal/workdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	root, err := workdir.Root()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Documents", "Alkime", "Drumtone"), root)

	path, err := workdir.RecordingPath("../escape/take-1.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "recordings", "take-1.mp3"), path)

	logPath, err := workdir.LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "logs", "drumtone.log"), logPath)

	for _, dir := range []string{"recordings", "logs"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
