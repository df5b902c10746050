package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	sentinel string
	err      error
}

func (f *fakeAgent) RunSetup(ctx context.Context, workdir string) (string, error) {
	return f.sentinel, f.err
}

func TestEnsureNoBranchUsesMainRepo(t *testing.T) {
	m := New(nil, nil)
	result, err := m.Ensure(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, result.Path)
}

func TestEnsureMissingMainRepoUsesMainRepo(t *testing.T) {
	m := New(nil, nil)
	result, err := m.Ensure(context.Background(), filepath.Join(t.TempDir(), "missing"), "feature/x")
	require.NoError(t, err)
	assert.Empty(t, result.Path)
}

func TestEnsureBranchAlreadyCheckedOut(t *testing.T) {
	main := t.TempDir()
	m := New(nil, nil)
	m.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
		if args[0] == "rev-parse" {
			return "feature/x\n", nil
		}
		return "", fmt.Errorf("unexpected call %v", args)
	}
	result, err := m.Ensure(context.Background(), main, "feature/x")
	require.NoError(t, err)
	assert.Empty(t, result.Path)
}

func TestEnsureCreatesWorktreeAndRunsSetup(t *testing.T) {
	main := t.TempDir()
	agent := &fakeAgent{sentinel: SetupSentinelSuccess}
	m := New(nil, agent)

	var addedPath, addedBranch string
	m.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "main\n", nil
		case "worktree":
			if args[1] == "list" {
				return "", nil
			}
			if args[1] == "add" {
				// args: worktree add -b branch path defaultBranch  OR  worktree add path branch
				addedPath = args[len(args)-2]
				addedBranch = args[len(args)-1]
				require.NoError(t, os.MkdirAll(addedPath, 0o755))
				return "", nil
			}
		case "show-ref":
			return "", fmt.Errorf("not found")
		case "symbolic-ref":
			return "refs/remotes/origin/main\n", nil
		}
		return "", fmt.Errorf("unexpected call %v", args)
	}

	result, err := m.Ensure(context.Background(), main, "feature/y")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, filepath.Join(main, ".worktrees", "feature-y"), result.Path)
	assert.Equal(t, filepath.Join(main, ".worktrees", "feature-y"), addedPath)
	assert.Equal(t, "main", addedBranch)

	gitignore, err := os.ReadFile(filepath.Join(main, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ".worktrees/")
}

func TestEnsureSetupFailureSurfacesError(t *testing.T) {
	main := t.TempDir()
	agent := &fakeAgent{sentinel: "SETUP_FAILED: missing deps"}
	m := New(nil, agent)
	m.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "main\n", nil
		case "worktree":
			if args[1] == "list" {
				return "", nil
			}
			require.NoError(t, os.MkdirAll(args[len(args)-2], 0o755))
			return "", nil
		case "show-ref":
			return "", fmt.Errorf("not found")
		case "symbolic-ref":
			return "", fmt.Errorf("no remote")
		}
		return "", fmt.Errorf("unexpected call %v", args)
	}

	_, err := m.Ensure(context.Background(), main, "feature/z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing deps")
}

func TestExistingWorktreeDiscovered(t *testing.T) {
	main := t.TempDir()
	m := New(nil, nil)
	m.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
		if args[0] == "rev-parse" {
			return "main\n", nil
		}
		if args[0] == "worktree" && args[1] == "list" {
			return "worktree /existing/path\nbranch refs/heads/feature/w\n\n", nil
		}
		return "", fmt.Errorf("unexpected call %v", args)
	}
	result, err := m.Ensure(context.Background(), main, "feature/w")
	require.NoError(t, err)
	assert.Equal(t, "/existing/path", result.Path)
	assert.False(t, result.Created)
}
