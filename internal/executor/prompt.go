// Package executor builds prompts and spawns the AI assistant subprocess in
// one of three modes (spec §4.4), grounded on internal/coding/gateway.go's
// adapter-dispatch shape and internal/devops/process/manager.go's
// PID-tracking subprocess conventions.
package executor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/huynle/brain/internal/model"
)

const freshStartTemplate = `You are picking up a task from the store at %s.

Read the task file, understand what is being asked, and complete it. When
finished, update the task's status field to reflect the outcome.
`

const resumeTemplate = `You are resuming an interrupted task from the store at %s.

A previous run of this task was in progress when it was interrupted. Read
the task file and any partial work already present in the working
directory, then continue from where it left off. When finished, update the
task's status field to reflect the outcome.
`

// BuildPrompt returns the literal prompt text for a task, per spec §4.4
// "Prompt construction": DirectPrompt verbatim if set, else one of the two
// templates parametrized by the task's store path.
func BuildPrompt(t model.Task, resume bool) string {
	if t.DirectPrompt != "" {
		return t.DirectPrompt
	}
	if resume {
		return fmt.Sprintf(resumeTemplate, t.Path)
	}
	return fmt.Sprintf(freshStartTemplate, t.Path)
}

// WritePromptFile writes prompt to <scratchDir>/prompt_<project>_<task>.txt
// (spec §6 "Scratch files") and returns its path.
func WritePromptFile(scratchDir, project, taskID, prompt string) (string, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(scratchDir, fmt.Sprintf("prompt_%s_%s.txt", project, taskID))
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return "", fmt.Errorf("write prompt file: %w", err)
	}
	return path, nil
}

// EffectiveAgent returns the task-level agent override if present, else the
// configured default (spec §4.4 "Effective agent and model").
func EffectiveAgent(t model.Task, defaultAgent string) string {
	if t.Agent != "" {
		return t.Agent
	}
	return defaultAgent
}

// EffectiveModel returns the task-level model override if present, else the
// configured default.
func EffectiveModel(t model.Task, defaultModel string) string {
	if t.Model != "" {
		return t.Model
	}
	return defaultModel
}
