package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynle/brain/internal/worktree"
)

func fakeCommandFn(script string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", script)
	}
}

func TestCLISetupAgentRunSetupSuccess(t *testing.T) {
	agent := &CLISetupAgent{Binary: "fake-agent", commandFn: fakeCommandFn("echo " + worktree.SetupSentinelSuccess)}

	sentinel, err := agent.RunSetup(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, worktree.SetupSentinelSuccess, sentinel)
}

func TestCLISetupAgentRunSetupFailureSentinel(t *testing.T) {
	script := "echo some setup noise; echo '" + worktree.SetupSentinelFailurePrefix + " missing deps'"
	agent := &CLISetupAgent{Binary: "fake-agent", commandFn: fakeCommandFn(script)}

	sentinel, err := agent.RunSetup(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, sentinel, worktree.SetupSentinelFailurePrefix)
}

func TestCLISetupAgentRunSetupProcessError(t *testing.T) {
	agent := &CLISetupAgent{Binary: "fake-agent", commandFn: fakeCommandFn("exit 1")}

	_, err := agent.RunSetup(context.Background(), t.TempDir())
	assert.Error(t, err)
}
