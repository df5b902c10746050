package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huynle/brain/internal/model"
)

// Mode selects one of the three spawn modes (spec §4.4).
type Mode string

const (
	ModeBackground Mode = "background"
	ModeTUI        Mode = "tui"
	ModeDashboard  Mode = "dashboard"
)

// SpawnRequest carries everything Spawn needs for one task.
type SpawnRequest struct {
	Project     string
	Task        model.Task
	WorkDir     string
	Resume      bool
	Mode        Mode
	TargetPane  string // dashboard mode only
	TmuxSession string // tui mode only

	DefaultAgent string
	DefaultModel string
}

// Handle describes a spawned subprocess, enough for the supervisor to track
// liveness and, on completion, to clean up scratch files (spec §4.4, §4.5).
type Handle struct {
	TaskID       string
	PID          int
	PaneID       string
	WindowName   string
	OpencodePort int
	SpawnedAt    time.Time

	promptPath  string
	scriptPath  string
	logPath     string
}

const (
	paneReadyPollInterval = 100 * time.Millisecond
	paneReadyBudget       = 3 * time.Second
	pidNarrowWait         = 2500 * time.Millisecond
	splitPaneMaxRetries   = 3
)

// Executor builds prompts and launches the assistant subprocess.
type Executor struct {
	ScratchDir   string
	Binary       string // the assistant CLI, e.g. "claude" or "codex"
	Multiplexer  Multiplexer
	Logger       *slog.Logger

	// lookPath and commandFn are overridden in tests.
	lookPath  func(string) (string, error)
	commandFn func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New constructs an Executor.
func New(scratchDir, binary string, mux Multiplexer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		ScratchDir:  scratchDir,
		Binary:      binary,
		Multiplexer: mux,
		Logger:      logger,
		lookPath:    exec.LookPath,
		commandFn:   exec.CommandContext,
	}
}

// Spawn builds the prompt and dispatches to the requested mode.
func (e *Executor) Spawn(ctx context.Context, req SpawnRequest) (*Handle, error) {
	prompt := BuildPrompt(req.Task, req.Resume)
	promptPath, err := WritePromptFile(e.ScratchDir, req.Project, req.Task.ID, prompt)
	if err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	agent := EffectiveAgent(req.Task, req.DefaultAgent)
	model := EffectiveModel(req.Task, req.DefaultModel)

	switch req.Mode {
	case ModeTUI:
		return e.spawnTUI(ctx, req, promptPath, agent, model)
	case ModeDashboard:
		return e.spawnDashboard(ctx, req, promptPath, agent, model)
	default:
		return e.spawnBackground(ctx, req, promptPath, agent, model)
	}
}

// spawnBackground launches a single subprocess with stdout/stderr appended
// to a log file, returning the child PID (spec §4.4 "Background").
func (e *Executor) spawnBackground(ctx context.Context, req SpawnRequest, promptPath, agent, model string) (*Handle, error) {
	if err := os.MkdirAll(e.ScratchDir, 0o755); err != nil {
		return nil, err
	}
	logPath := filepath.Join(e.ScratchDir, fmt.Sprintf("output_%s_%s.log", req.Project, req.Task.ID))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	cmd := e.commandFn(ctx, e.Binary, e.commandArgs(promptPath, agent, model)...)
	cmd.Dir = req.WorkDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start assistant: %w", err)
	}

	return &Handle{
		TaskID:     req.Task.ID,
		PID:        cmd.Process.Pid,
		SpawnedAt:  time.Now(),
		promptPath: promptPath,
		logPath:    logPath,
	}, nil
}

// spawnTUI writes a wrapper script and asks the multiplexer to open a new
// window running it, then best-effort takes the PID of the first pane in the
// session that reports one and discovers its local HTTP port (spec §4.4
// "TUI (own window)"). The pane PID is used as is; it is not narrowed to the
// assistant process running inside the pane.
func (e *Executor) spawnTUI(ctx context.Context, req SpawnRequest, promptPath, agent, model string) (*Handle, error) {
	scriptPath, err := e.writeWrapperScript(req, promptPath, agent, model)
	if err != nil {
		return nil, err
	}

	windowName := fmt.Sprintf("%s-%s", req.Project, req.Task.ID)
	windowID, err := e.Multiplexer.NewWindow(ctx, req.TmuxSession, windowName, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("open tmux window: %w", err)
	}

	handle := &Handle{
		TaskID:     req.Task.ID,
		WindowName: windowID,
		SpawnedAt:  time.Now(),
		promptPath: promptPath,
		scriptPath: scriptPath,
	}

	time.Sleep(paneReadyPollInterval)
	panes, err := e.Multiplexer.ListPanes(ctx, req.TmuxSession)
	if err == nil {
		for _, p := range panes {
			if p.PID != 0 {
				handle.PID = p.PID
				break
			}
		}
	}

	time.Sleep(pidNarrowWait)
	handle.OpencodePort = e.discoverPort(handle.PID)

	return handle, nil
}

// spawnDashboard splits the target pane in an existing tmux window (spec
// §4.4 "Dashboard").
func (e *Executor) spawnDashboard(ctx context.Context, req SpawnRequest, promptPath, agent, model string) (*Handle, error) {
	if err := e.waitForPane(ctx, req.TargetPane); err != nil {
		return nil, fmt.Errorf("target pane not ready: %w", err)
	}

	scriptPath, err := e.writeWrapperScript(req, promptPath, agent, model)
	if err != nil {
		return nil, err
	}

	var paneID string
	var splitErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < splitPaneMaxRetries; attempt++ {
		paneID, splitErr = e.Multiplexer.SplitPane(ctx, req.TargetPane, scriptPath)
		if splitErr == nil {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if splitErr != nil {
		return nil, fmt.Errorf("split pane: %w", splitErr)
	}
	if !strings.HasPrefix(paneID, "%") {
		return nil, fmt.Errorf("unexpected pane id %q: must start with %%", paneID)
	}

	title := req.Task.Title
	if len(title) > 40 {
		title = title[:40]
	}
	if err := e.Multiplexer.SetTitle(ctx, paneID, title); err != nil {
		e.Logger.Warn("failed to set pane title", "pane", paneID, "error", err)
	}

	handle := &Handle{
		TaskID:     req.Task.ID,
		PaneID:     paneID,
		SpawnedAt:  time.Now(),
		promptPath: promptPath,
		scriptPath: scriptPath,
	}

	panes, err := e.Multiplexer.ListPanes(ctx, "")
	if err == nil {
		for _, p := range panes {
			if p.PaneID == paneID {
				handle.PID = p.PID
				break
			}
		}
	}
	time.Sleep(pidNarrowWait)
	handle.OpencodePort = e.discoverPort(handle.PID)

	return handle, nil
}

func (e *Executor) waitForPane(ctx context.Context, paneID string) error {
	if paneID == "" {
		return fmt.Errorf("no target pane configured")
	}
	deadline := time.Now().Add(paneReadyBudget)
	for {
		exists, err := e.Multiplexer.PaneExists(ctx, paneID)
		if err == nil && exists {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pane %s not ready after %s", paneID, paneReadyBudget)
		}
		time.Sleep(paneReadyPollInterval)
	}
}

func (e *Executor) writeWrapperScript(req SpawnRequest, promptPath, agent, model string) (string, error) {
	if err := os.MkdirAll(e.ScratchDir, 0o755); err != nil {
		return "", err
	}
	scriptPath := filepath.Join(e.ScratchDir, fmt.Sprintf("runner_%s_%s.sh", req.Project, req.Task.ID))
	args := strings.Join(e.commandArgs(promptPath, agent, model), " ")
	script := fmt.Sprintf("#!/bin/sh\ncd %q\nexec %s %s\n", req.WorkDir, e.Binary, args)
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return "", err
	}
	return scriptPath, nil
}

func (e *Executor) commandArgs(promptPath, agent, model string) []string {
	args := []string{"--prompt-file", promptPath}
	if agent != "" {
		args = append(args, "--agent", agent)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

// discoverPort best-effort inspects open sockets owned by pid to find a
// locally bound HTTP port (spec §4.4: "All discovery steps are best-effort —
// absence does not fail the spawn"). A zero result means "not discovered".
func (e *Executor) discoverPort(pid int) int {
	if pid == 0 {
		return 0
	}
	port, err := discoverListeningPort(pid)
	if err != nil {
		e.Logger.Debug("port discovery failed", "pid", pid, "error", err)
		return 0
	}
	return port
}
