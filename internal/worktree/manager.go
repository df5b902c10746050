// Package worktree materializes per-branch git worktrees for task execution
// (spec §4.3), grounded on the subprocess-invocation conventions of
// internal/devops/process/manager.go (os/exec, context-scoped timeouts,
// best-effort cleanup) and the coding.Gateway spawn interface from
// internal/coding/gateway.go for the setup-agent step.
package worktree

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huynle/brain/internal/taskstore"
)

// SetupAgent spawns the AI assistant inside a worktree with a fixed setup
// prompt and reports its sentinel outcome (spec §4.3 step 5). It is the
// injected seam to the black-box assistant subprocess (spec §1).
type SetupAgent interface {
	RunSetup(ctx context.Context, workdir string) (sentinel string, err error)
}

const setupTimeout = 120 * time.Second

// SetupSentinelSuccess and SetupSentinelFailurePrefix are the sentinels the
// setup agent is expected to emit (spec §4.3 step 5).
const (
	SetupSentinelSuccess        = "SETUP_SUCCESS"
	SetupSentinelFailurePrefix  = "SETUP_FAILED:"
)

// Result describes the outcome of materializing a worktree for a task.
type Result struct {
	// Path is empty when the caller should use the main repo directly
	// (spec §4.3 step 1).
	Path    string
	Created bool
}

// Manager creates and discovers git worktrees.
type Manager struct {
	logger *slog.Logger
	agent  SetupAgent
	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

// New constructs a Manager. agent may be nil, in which case setup is skipped
// (used for branches that reuse an already-materialized worktree).
func New(logger *slog.Logger, agent SetupAgent) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger, agent: agent}
	m.runGit = m.execGit
	return m
}

// Ensure materializes (or discovers) the worktree for branch inside
// mainRepo, following spec §4.3 steps 1-5. An empty branch or a main repo
// that does not exist both mean "use the main repo" (Result.Path == "").
func (m *Manager) Ensure(ctx context.Context, mainRepo, branch string) (Result, error) {
	if branch == "" {
		return Result{}, nil
	}
	if info, err := os.Stat(mainRepo); err != nil || !info.IsDir() {
		return Result{}, nil
	}

	// Step 1: branch is already checked out in the main repo.
	current, err := m.runGit(ctx, mainRepo, "rev-parse", "--abbrev-ref", "HEAD")
	if err == nil && strings.TrimSpace(current) == branch {
		return Result{}, nil
	}

	// Step 2: branch already has a worktree.
	if existing, ok := m.existingWorktree(ctx, mainRepo, branch); ok {
		return Result{Path: existing}, nil
	}

	// Step 3: create <mainRepo>/.worktrees/<sanitized-branch>.
	sanitized := taskstore.SanitizeBranch(branch)
	worktreesDir := filepath.Join(mainRepo, ".worktrees")
	path := filepath.Join(worktreesDir, sanitized)

	if err := m.ensureGitignored(mainRepo); err != nil {
		m.logger.Warn("failed to update .gitignore", "error", err)
	}

	// Step 4: add from existing branch, or create from the default branch.
	branchExists := m.branchExists(ctx, mainRepo, branch)
	var addErr error
	if branchExists {
		_, addErr = m.runGit(ctx, mainRepo, "worktree", "add", path, branch)
	} else {
		defaultBranch := m.defaultBranch(ctx, mainRepo)
		_, addErr = m.runGit(ctx, mainRepo, "worktree", "add", "-b", branch, path, defaultBranch)
	}
	if addErr != nil {
		return Result{}, fmt.Errorf("create worktree: %w", addErr)
	}

	// Step 5: invoke the setup agent, bounded by a 120s timeout.
	if m.agent != nil {
		if err := m.runSetup(ctx, path); err != nil {
			return Result{Path: path, Created: true}, err
		}
	}

	return Result{Path: path, Created: true}, nil
}

func (m *Manager) runSetup(ctx context.Context, workdir string) error {
	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	runID := uuid.NewString()
	m.logger.Info("worktree setup run", "run_id", runID, "workdir", workdir)

	sentinel, err := m.agent.RunSetup(setupCtx, workdir)
	if err != nil {
		return fmt.Errorf("worktree setup failed: %w", err)
	}
	sentinel = strings.TrimSpace(sentinel)
	switch {
	case sentinel == SetupSentinelSuccess:
		return nil
	case strings.HasPrefix(sentinel, SetupSentinelFailurePrefix):
		return fmt.Errorf("worktree setup reported failure: %s", strings.TrimSpace(strings.TrimPrefix(sentinel, SetupSentinelFailurePrefix)))
	default:
		return fmt.Errorf("worktree setup produced no recognized sentinel")
	}
}

// existingWorktree parses `git worktree list --porcelain` for a worktree
// whose branch matches (spec §4.3 step 2).
func (m *Manager) existingWorktree(ctx context.Context, mainRepo, branch string) (string, bool) {
	out, err := m.runGit(ctx, mainRepo, "worktree", "list", "--porcelain")
	if err != nil {
		return "", false
	}
	var currentPath string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "worktree "):
			currentPath = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			if strings.TrimPrefix(ref, "refs/heads/") == branch {
				return currentPath, true
			}
		}
	}
	return "", false
}

func (m *Manager) branchExists(ctx context.Context, mainRepo, branch string) bool {
	_, err := m.runGit(ctx, mainRepo, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// defaultBranch resolves origin/HEAD, falling back to main then master
// (spec §4.3 step 4).
func (m *Manager) defaultBranch(ctx context.Context, mainRepo string) string {
	out, err := m.runGit(ctx, mainRepo, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(out)
		ref = strings.TrimPrefix(ref, "refs/remotes/origin/")
		if ref != "" {
			return ref
		}
	}
	if m.branchExists(ctx, mainRepo, "main") {
		return "main"
	}
	return "master"
}

func (m *Manager) ensureGitignored(mainRepo string) error {
	path := filepath.Join(mainRepo, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == ".worktrees/" {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(".worktrees/\n")
	return err
}

func (m *Manager) execGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}
