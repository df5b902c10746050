package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynle/brain/internal/model"
)

func TestBuildPromptDirectOverride(t *testing.T) {
	task := model.Task{DirectPrompt: "do the thing"}
	assert.Equal(t, "do the thing", BuildPrompt(task, false))
	assert.Equal(t, "do the thing", BuildPrompt(task, true))
}

func TestBuildPromptTemplates(t *testing.T) {
	task := model.Task{Path: "projects/demo/task/abc.md"}
	fresh := BuildPrompt(task, false)
	resume := BuildPrompt(task, true)
	assert.Contains(t, fresh, task.Path)
	assert.Contains(t, resume, task.Path)
	assert.NotEqual(t, fresh, resume)
}

func TestWritePromptFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WritePromptFile(dir, "demo", "abc123", "hello")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prompt_demo_abc123.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEffectiveAgentAndModel(t *testing.T) {
	task := model.Task{}
	assert.Equal(t, "default-agent", EffectiveAgent(task, "default-agent"))
	assert.Equal(t, "default-model", EffectiveModel(task, "default-model"))

	task.Agent = "codex"
	task.Model = "gpt-5"
	assert.Equal(t, "codex", EffectiveAgent(task, "default-agent"))
	assert.Equal(t, "gpt-5", EffectiveModel(task, "default-model"))
}
