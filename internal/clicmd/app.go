// Package clicmd implements the CLI surface over the task service, resolver,
// and runner process state (spec §6 "CLI"), grounded on the teacher's
// cobra-based cmd/cobra_cli.go: a root command holding shared state plus one
// cobra.Command per verb, each delegating to the already-built packages.
package clicmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/huynle/brain/internal/brainconfig"
	"github.com/huynle/brain/internal/model"
	"github.com/huynle/brain/internal/obslog"
	"github.com/huynle/brain/internal/procstate"
	"github.com/huynle/brain/internal/taskstore"
)

// App holds the shared state every subcommand operates on.
type App struct {
	Cfg    brainconfig.Config
	Tasks  *taskstore.Service
	State  *procstate.Store
	Logger *slog.Logger

	// RunnerBinary is the path to the brain-runner executable, used by
	// start/start-bg to spawn a detached per-project supervisor.
	RunnerBinary string
}

// NewApp wires an App from cfg, matching the dependency graph cmd/brain-server
// and cmd/brain-runner also build from brainconfig.Config.
func NewApp(cfg brainconfig.Config) (*App, error) {
	logger := obslog.New("cli", os.Stderr, obslog.ParseLevel(os.Getenv("BRAIN_LOG_LEVEL")))

	indexer := taskstore.NewSubprocessIndexer(indexerBinary())
	tasks := taskstore.New(cfg.BrainDir, cfg.DefaultWorkDir, cfg.DefaultWorkDir, indexer)

	if err := os.MkdirAll(cfg.StateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	return &App{
		Cfg:          cfg,
		Tasks:        tasks,
		State:        procstate.New(cfg.StateDir()),
		Logger:       logger,
		RunnerBinary: runnerBinaryPath(),
	}, nil
}

// runnerBinaryPath locates brain-runner next to the current executable,
// falling back to PATH resolution at exec time.
func runnerBinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "brain-runner")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "brain-runner"
}

func indexerBinary() string {
	if v := os.Getenv("BRAIN_INDEXER_BINARY"); v != "" {
		return v
	}
	return "brain-index"
}

// projectOrAll resolves an optional project argument: empty or "all" means
// every project known to the task service.
func (a *App) projectOrAll(project string) ([]string, error) {
	if project != "" && project != "all" {
		return []string{project}, nil
	}
	return a.Tasks.ListProjects()
}

func statusLine(project string, st model.RunnerState) string {
	return fmt.Sprintf("%-20s %-8s running=%d spawned=%d completed=%d failed=%d",
		project, st.Status, len(st.RunningTasks), st.Stats.TotalSpawned, st.Stats.TotalCompleted, st.Stats.TotalFailed)
}
