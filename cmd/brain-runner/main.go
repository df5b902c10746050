// Command brain-runner is the per-project supervisor process spawned by
// `brain start`/`brain start-bg` (spec §4.5 "Runner supervisor", spec §6
// "Persisted state"). It also serves the one-shot `brain run-one` path via
// --once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huynle/brain/internal/brainconfig"
	"github.com/huynle/brain/internal/executor"
	"github.com/huynle/brain/internal/model"
	"github.com/huynle/brain/internal/obslog"
	"github.com/huynle/brain/internal/procstate"
	"github.com/huynle/brain/internal/resolver"
	"github.com/huynle/brain/internal/runner"
	"github.com/huynle/brain/internal/taskstore"
	"github.com/huynle/brain/internal/worktree"
)

func main() {
	os.Exit(run())
}

func run() int {
	project := flag.String("project", "", "project to supervise")
	mode := flag.String("mode", "background", "tui|background spawn mode for the --once task; the poll loop always spawns in background mode")
	taskID := flag.String("task", "", "with --once, spawn exactly this task instead of polling")
	once := flag.Bool("once", false, "spawn one ready task and exit instead of running the poll loop")
	configPath := flag.String("config", "", "path to brain config YAML")
	flag.Parse()

	if *project == "" {
		fmt.Fprintln(os.Stderr, "brain-runner: --project is required")
		return 1
	}

	cfg, err := brainconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-runner:", err)
		return 1
	}

	logger := obslog.New("runner", os.Stderr, obslog.ParseLevel(os.Getenv("BRAIN_LOG_LEVEL")))

	indexer := taskstore.NewSubprocessIndexer(indexerBinary())
	tasks := taskstore.New(cfg.BrainDir, cfg.DefaultWorkDir, cfg.DefaultWorkDir, indexer)

	spawnMode := executor.ModeBackground
	if *mode == "tui" {
		spawnMode = executor.ModeTUI
	}

	mux := executor.NewTmuxMultiplexer("")
	exec := executor.New(cfg.StateDir(), assistantBinary(), mux, logger)
	setupAgent := executor.NewCLISetupAgent(assistantBinary())
	worktrees := worktree.New(logger, setupAgent)
	state := procstate.New(cfg.StateDir())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *once {
		return runOnce(ctx, tasks, exec, spawnMode, *project, *taskID, cfg)
	}

	rcfg := runner.Config{
		Project:                     *project,
		Home:                        cfg.DefaultWorkDir,
		MaxConcurrent:               cfg.MaxConcurrent,
		PollInterval:                time.Duration(cfg.PollIntervalSeconds) * time.Second,
		DefaultAgent:                cfg.DefaultAgent,
		DefaultModel:                cfg.DefaultModel,
		MaxConsecutiveSpawnFailures: cfg.MaxConsecutiveSpawnFailures,
	}

	// Stale-state sweep before the first tick (spec §4.5 "Stale-state sweep").
	if removed, err := state.FleetSweep(); err != nil {
		logger.Warn("fleet sweep failed", "error", err)
	} else if len(removed) > 0 {
		logger.Info("fleet sweep removed stale projects", "projects", removed)
	}

	supervisor := runner.New(rcfg, tasks, worktrees, exec, state, logger)
	if err := supervisor.Run(ctx); err != nil {
		logger.Error("supervisor exited with error", "error", err)
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, tasks *taskstore.Service, exec *executor.Executor, mode executor.Mode, project, taskID string, cfg brainconfig.Config) int {
	result, err := tasks.Classified(ctx, project)
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-runner:", err)
		return 1
	}

	chosen := selectTask(result.Tasks, taskID)
	if chosen == nil {
		fmt.Println("no ready task")
		return 0
	}

	workDir := tasks.ResolveWorkDir(chosen.Task)
	handle, err := exec.Spawn(ctx, executor.SpawnRequest{
		Project:      project,
		Task:         chosen.Task,
		WorkDir:      workDir,
		Mode:         mode,
		DefaultAgent: cfg.DefaultAgent,
		DefaultModel: cfg.DefaultModel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-runner: spawn failed:", err)
		return 1
	}

	fmt.Printf("spawned %s (pid %d)\n", chosen.ID, handle.PID)
	for procstate.IsAlive(handle.PID) {
		time.Sleep(500 * time.Millisecond)
	}
	fmt.Printf("%s finished\n", chosen.ID)
	return 0
}

// selectTask returns the task matching taskID if given, else the resolver's
// next ready pick.
func selectTask(tasks []model.ResolvedTask, taskID string) *model.ResolvedTask {
	if taskID != "" {
		for i := range tasks {
			if tasks[i].ID == taskID {
				return &tasks[i]
			}
		}
		return nil
	}
	return resolver.Next(tasks)
}

func indexerBinary() string {
	if v := os.Getenv("BRAIN_INDEXER_BINARY"); v != "" {
		return v
	}
	return "brain-index"
}

func assistantBinary() string {
	if v := os.Getenv("BRAIN_AGENT_BINARY"); v != "" {
		return v
	}
	return "claude"
}
