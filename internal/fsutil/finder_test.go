package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"a.lua",
		"b.txt",
		"nested/deep/c.lua",
		"nested/d.lua",
		"nested/e.md",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := FindFilesByExtension(root, ".lua")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.lua"),
		filepath.Join(root, "nested", "d.lua"),
		filepath.Join(root, "nested", "deep", "c.lua"),
	}, files)
}

func TestFindFilesByExtensionMissingRoot(t *testing.T) {
	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "absent"), ".lua")
	require.Error(t, err)
}

func TestFindFilesByExtensionEmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = FindFilesByExtension(t.TempDir(), "")
	})
}
