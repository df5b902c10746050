// Package runner implements the per-project supervisor: the cooperative
// poll loop that spawns ready tasks, tracks liveness, persists state, and
// recovers from restarts (spec §4.5 "Runner supervisor").
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/huynle/brain/internal/errtypes"
	"github.com/huynle/brain/internal/executor"
	"github.com/huynle/brain/internal/model"
	"github.com/huynle/brain/internal/obsmetrics"
	"github.com/huynle/brain/internal/procstate"
	"github.com/huynle/brain/internal/resolver"
	"github.com/huynle/brain/internal/taskstore"
	"github.com/huynle/brain/internal/worktree"
)

const (
	cancelGrace   = 5 * time.Second
	shutdownGrace = 10 * time.Second
)

// Config holds a single project supervisor's tunables, sourced from
// brainconfig.Config.
type Config struct {
	Project                     string
	Home                        string
	MaxConcurrent               int
	PollInterval                time.Duration
	DefaultAgent                string
	DefaultModel                string
	MaxConsecutiveSpawnFailures int
}

// Supervisor runs one project's cooperative poll loop.
type Supervisor struct {
	cfg       Config
	tasks     *taskstore.Service
	worktrees *worktree.Manager
	exec      *executor.Executor
	state     *procstate.Store
	logger    *slog.Logger

	mu                  sync.Mutex
	consecutiveFailures int
}

// New constructs a project Supervisor.
func New(cfg Config, tasks *taskstore.Service, worktrees *worktree.Manager, exec *executor.Executor, state *procstate.Store, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Supervisor{cfg: cfg, tasks: tasks, worktrees: worktrees, exec: exec, state: state, logger: logger.With("component", "runner", "project", cfg.Project)}
}

// Run blocks, ticking at the configured poll interval, until ctx is
// cancelled. On entry it performs crash recovery, then loops tick().
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.state.WritePID(s.cfg.Project, currentPID()); err != nil {
		s.logger.Warn("failed to write supervisor pid file", "error", err)
	}
	defer func() {
		_ = s.state.RemovePID(s.cfg.Project)
	}()

	st, err := s.state.Load(s.cfg.Project)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if st.Status == model.RunnerIdle {
		st.Status = model.RunnerRunning
		st.StartedAt = time.Now()
	}
	if err := s.state.Save(s.cfg.Project, st); err != nil {
		s.logger.Warn("failed to persist initial state", "error", err)
	}
	if err := s.tick(ctx); err != nil {
		s.logger.Error("initial tick failed, continuing", "error", err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown(context.Background())
			return nil
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				s.logger.Error("tick failed, continuing", "error", err)
			}
		}
	}
}

// tick runs one cooperative iteration: liveness sweep, cancellation sweep,
// pause derivation, then (if running) new spawns up to available slots
// (spec §4.5, step order 1-4).
func (s *Supervisor) tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state.Load(s.cfg.Project)
	if err != nil {
		return err
	}

	if err := s.tasks.EnsureIndexed(ctx); err != nil {
		if _, ok := err.(*errtypes.IndexerUnavailableError); ok {
			s.logger.Debug("indexer unavailable, staying idle this tick")
			return nil
		}
		return err
	}

	tasksByID, err := s.tasksByID(ctx)
	if err != nil {
		return err
	}

	st, deadEntries := procstate.Sweep(st)
	for _, dead := range deadEntries {
		s.handleDeadEntry(ctx, &st, dead, tasksByID)
	}

	st = s.handleCancellations(ctx, st, tasksByID)

	if s.paused(tasksByID) {
		st.Status = model.RunnerPaused
		return s.state.Save(s.cfg.Project, st)
	}
	if st.Status == model.RunnerPaused {
		st.Status = model.RunnerRunning
	}
	if st.Status == model.RunnerStopped {
		return s.state.Save(s.cfg.Project, st)
	}

	result, err := s.tasks.Classified(ctx, s.cfg.Project)
	if err != nil {
		return err
	}
	ready := resolver.Ready(result.Tasks)

	running := make(map[string]bool, len(st.RunningTasks))
	for _, e := range st.RunningTasks {
		running[e.TaskID] = true
	}

	slots := s.cfg.MaxConcurrent - len(st.RunningTasks)
	for _, rt := range ready {
		if slots <= 0 {
			break
		}
		if running[rt.ID] {
			continue
		}
		if err := s.spawnTask(ctx, &st, rt.Task, false); err != nil {
			s.logger.Warn("spawn failed", "task", rt.ID, "error", err)
			continue
		}
		slots--
	}

	obsmetrics.SetRunningTasks(s.cfg.Project, len(st.RunningTasks))
	return s.state.Save(s.cfg.Project, st)
}

func (s *Supervisor) tasksByID(ctx context.Context) (map[string]model.Task, error) {
	tasks, err := s.tasks.Tasks(ctx, s.cfg.Project)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out, nil
}

// handleDeadEntry implements crash recovery (spec §4.5 "Crash recovery"): a
// dead child whose task is still in_progress is resumable; otherwise the
// entry is simply dropped (already done by procstate.Sweep).
func (s *Supervisor) handleDeadEntry(ctx context.Context, st *model.RunnerState, dead model.RunningTaskEntry, tasksByID map[string]model.Task) {
	task, ok := tasksByID[dead.TaskID]
	if !ok || task.Status != model.StatusInProgress {
		return
	}
	if err := s.spawnTask(ctx, st, task, true); err != nil {
		s.logger.Warn("resume spawn failed", "task", task.ID, "error", err)
	}
}

// handleCancellations terminates children whose task was flipped to
// cancelled in the store (spec §4.7 "Task cancellation requests").
func (s *Supervisor) handleCancellations(ctx context.Context, st model.RunnerState, tasksByID map[string]model.Task) model.RunnerState {
	var kept []model.RunningTaskEntry
	for _, e := range st.RunningTasks {
		task, ok := tasksByID[e.TaskID]
		if ok && task.Status == model.StatusCancelled {
			terminate(e.PID, cancelGrace)
			continue
		}
		kept = append(kept, e)
	}
	st.RunningTasks = kept
	return st
}

// paused implements pause derivation: a project-root task (title == project
// id, no dependencies) in blocked status pauses the whole project (spec
// §4.5 "Pause derivation").
func (s *Supervisor) paused(tasksByID map[string]model.Task) bool {
	for _, t := range tasksByID {
		if t.Title == s.cfg.Project && len(t.DependsOn) == 0 && t.Status == model.StatusBlocked {
			return true
		}
	}
	return false
}

// spawnTask materializes the worktree, marks the task in_progress, and
// spawns the assistant subprocess. A worktree failure marks the task blocked
// with a structured reason (spec §4.6 "Spawn errors"); a launch failure
// restores it to pending, or marks it blocked once MaxConsecutiveSpawnFailures
// consecutive launches have failed.
func (s *Supervisor) spawnTask(ctx context.Context, st *model.RunnerState, task model.Task, resume bool) error {
	attemptID := uuid.NewString()
	s.logger.Info("spawn attempt", "attempt_id", attemptID, "task_id", task.ID, "project", s.cfg.Project)

	workDir, err := s.materializeWorkDir(ctx, task)
	if err != nil {
		s.blockTask(ctx, task.ID, "worktree_setup", err)
		return err
	}

	if err := s.tasks.MarkStatus(ctx, s.cfg.Project, task.ID, model.StatusInProgress); err != nil {
		return fmt.Errorf("mark in_progress: %w", err)
	}

	handle, err := s.exec.Spawn(ctx, executor.SpawnRequest{
		Project:      s.cfg.Project,
		Task:         task,
		WorkDir:      workDir,
		Resume:       resume,
		Mode:         executor.ModeBackground,
		DefaultAgent: s.cfg.DefaultAgent,
		DefaultModel: s.cfg.DefaultModel,
	})
	if err != nil {
		s.recordSpawnFailure(st)
		if s.consecutiveFailures >= s.cfg.MaxConsecutiveSpawnFailures {
			s.blockTask(ctx, task.ID, "subprocess_launch", err)
		} else if rerr := s.tasks.MarkStatus(ctx, s.cfg.Project, task.ID, model.StatusPending); rerr != nil {
			s.logger.Error("failed to restore task to pending", "task", task.ID, "error", rerr)
		}
		return err
	}

	*st = procstate.Upsert(*st, model.RunningTaskEntry{
		TaskID:       handle.TaskID,
		PID:          handle.PID,
		PaneID:       handle.PaneID,
		WindowName:   handle.WindowName,
		OpencodePort: handle.OpencodePort,
		SpawnedAt:    handle.SpawnedAt,
	})
	st.Stats.TotalSpawned++
	s.consecutiveFailures = 0
	obsmetrics.RecordSpawnAttempt(s.cfg.Project, "success")
	return nil
}

func (s *Supervisor) recordSpawnFailure(st *model.RunnerState) {
	st.Stats.TotalFailed++
	s.consecutiveFailures++
	if s.consecutiveFailures >= s.cfg.MaxConsecutiveSpawnFailures {
		st.Status = model.RunnerPaused
	}
	obsmetrics.RecordSpawnAttempt(s.cfg.Project, "failure")
}

func (s *Supervisor) blockTask(ctx context.Context, taskID, stage string, cause error) {
	reason := (&errtypes.SpawnError{TaskID: taskID, Stage: stage, Err: cause}).Reason()
	s.logger.Error("task blocked", "task", taskID, "reason", reason)
	if err := s.tasks.MarkStatus(ctx, s.cfg.Project, taskID, model.StatusBlocked); err != nil {
		s.logger.Error("failed to mark task blocked", "task", taskID, "error", err)
	}
}

// materializeWorkDir asks the worktree manager to create/find the branch
// directory when the task names a git branch, falling back to the
// service's workdir-resolution chain otherwise (spec §3 "Data flow").
func (s *Supervisor) materializeWorkDir(ctx context.Context, task model.Task) (string, error) {
	if task.WorkDir != "" && task.GitBranch != "" {
		mainRepo := filepath.Join(s.cfg.Home, task.WorkDir)
		result, err := s.worktrees.Ensure(ctx, mainRepo, task.GitBranch)
		if err != nil {
			return "", err
		}
		if result.Path != "" {
			return result.Path, nil
		}
	}
	return s.tasks.ResolveWorkDir(task), nil
}

// shutdown implements graceful shutdown: flip state to stopped, SIGTERM all
// tracked children, wait, then SIGKILL stragglers (spec §4.7 "Graceful
// shutdown").
func (s *Supervisor) shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state.Load(s.cfg.Project)
	if err != nil {
		s.logger.Error("failed to load state during shutdown", "error", err)
		return
	}
	for _, e := range st.RunningTasks {
		terminate(e.PID, shutdownGrace)
	}
	st.Status = model.RunnerStopped
	if err := s.state.Save(s.cfg.Project, st); err != nil {
		s.logger.Error("failed to persist stopped state", "error", err)
	}
}

func currentPID() int {
	return os.Getpid()
}

// terminate sends SIGTERM, waits up to grace for the process to exit, then
// SIGKILLs if it is still alive.
func terminate(pid int, grace time.Duration) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(pid, syscall.SIGTERM)
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !procstate.IsAlive(pid) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)
}
