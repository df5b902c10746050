package taskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynle/brain/internal/model"
)

func TestWriteStatusReplacesExistingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.md")
	original := "---\nid: abc\nstatus: pending\npriority: high\n---\n\n# Task\n\nbody text\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	require.NoError(t, writeStatus(path, model.StatusInProgress))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "status: in_progress")
	assert.NotContains(t, content, "status: pending")
	assert.Contains(t, content, "# Task")
	assert.Contains(t, content, "body text")
}

func TestWriteStatusInsertsMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.md")
	original := "---\nid: abc\npriority: high\n---\nbody\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	require.NoError(t, writeStatus(path, model.StatusBlocked))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "status: blocked")
	assert.Contains(t, string(data), "body")
}

func TestWriteStatusNoFrontMatterErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.md")
	require.NoError(t, os.WriteFile(path, []byte("# no front matter\n"), 0o644))

	err := writeStatus(path, model.StatusBlocked)
	assert.Error(t, err)
}
