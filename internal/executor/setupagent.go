package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huynle/brain/internal/worktree"
)

const worktreeSetupPrompt = "Run this repository's project setup (install dependencies, build if needed). " +
	"When finished, print exactly \"" + worktree.SetupSentinelSuccess + "\" on its own line, " +
	"or \"" + worktree.SetupSentinelFailurePrefix + " <reason>\" if setup could not complete."

// CLISetupAgent implements worktree.SetupAgent by running the assistant
// binary synchronously with a fixed setup prompt (spec §4.3 step 5),
// grounded on Executor's own os/exec invocation style.
type CLISetupAgent struct {
	Binary    string
	commandFn func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewCLISetupAgent returns a CLISetupAgent invoking binary.
func NewCLISetupAgent(binary string) *CLISetupAgent {
	return &CLISetupAgent{Binary: binary, commandFn: exec.CommandContext}
}

func (a *CLISetupAgent) RunSetup(ctx context.Context, workdir string) (string, error) {
	cmd := a.commandFn(ctx, a.Binary, "-p", worktreeSetupPrompt)
	cmd.Dir = workdir

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run setup agent: %w", err)
	}

	out := strings.TrimSpace(stdout.String())
	lines := strings.Split(out, "\n")
	last := lines[len(lines)-1]
	return last, nil
}
