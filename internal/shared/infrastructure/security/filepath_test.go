package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	t.Run("rejects empty path", func(t *testing.T) {
		_, err := ValidateFilePath("  ")
		assert.ErrorContains(t, err, "cannot be empty")
	})

	t.Run("rejects shell characters", func(t *testing.T) {
		for _, char := range dangerousChars {
			_, err := ValidateFilePath("/tmp/worksync" + char + "db")
			assert.ErrorContains(t, err, "forbidden character", "character %q", char)
		}
	})

	t.Run("resolves existing file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "worksync.db")
		require.NoError(t, os.WriteFile(file, nil, 0o600))

		got, err := ValidateFilePath(file)
		require.NoError(t, err)

		want, err := filepath.EvalSymlinks(file)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("cleans missing file", func(t *testing.T) {
		dir := t.TempDir()
		got, err := ValidateFilePath(dir + "/data/../worksync.db")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "worksync.db"), got)
	})

	t.Run("makes relative path absolute", func(t *testing.T) {
		got, err := ValidateFilePath("worksync.db")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})
}

func TestSplitDSN(t *testing.T) {
	dir := t.TempDir()

	path, query, err := SplitDSN(filepath.Join(dir, "w.db") + "?mode=rwc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "w.db"), path)
	assert.Equal(t, "mode=rwc", query)

	path, query, err = SplitDSN(filepath.Join(dir, "w.db"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "w.db"), path)
	assert.Empty(t, query)

	_, _, err = SplitDSN("/tmp/w;rm.db")
	assert.Error(t, err)
}
