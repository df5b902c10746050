// Package procstate persists per-project runner state to disk and tracks
// subprocess liveness across restarts (spec §4.5 "Runner state & crash
// recovery").
package procstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/huynle/brain/internal/model"
)

// Store reads and writes a project's runner state, running-task list, and
// supervisor PID file atomically. Three files per project, matching the
// persisted-state layout: runner-<project>.json, running-<project>.json,
// runner-<project>.pid.
type Store struct {
	stateDir string
}

// New returns a Store rooted at stateDir (typically <brainDir>/state).
func New(stateDir string) *Store {
	return &Store{stateDir: stateDir}
}

func (s *Store) runnerPath(project string) string {
	return filepath.Join(s.stateDir, "runner-"+project+".json")
}

func (s *Store) runningPath(project string) string {
	return filepath.Join(s.stateDir, "running-"+project+".json")
}

func (s *Store) pidPath(project string) string {
	return filepath.Join(s.stateDir, "runner-"+project+".pid")
}

// Load reads the persisted state for project, combining the runner-state
// file and the running-tasks file into one in-memory model.RunnerState. A
// missing runner-state file is not an error: it returns a fresh idle state.
func (s *Store) Load(project string) (model.RunnerState, error) {
	var st model.RunnerState
	data, err := os.ReadFile(s.runnerPath(project))
	if err != nil {
		if !os.IsNotExist(err) {
			return model.RunnerState{}, fmt.Errorf("read runner state for %s: %w", project, err)
		}
		now := time.Now()
		st = model.RunnerState{Status: model.RunnerIdle, StartedAt: now, UpdatedAt: now}
	} else if err := json.Unmarshal(data, &st); err != nil {
		return model.RunnerState{}, fmt.Errorf("parse runner state for %s: %w", project, err)
	}

	running, err := os.ReadFile(s.runningPath(project))
	if err != nil {
		if !os.IsNotExist(err) {
			return model.RunnerState{}, fmt.Errorf("read running tasks for %s: %w", project, err)
		}
		st.RunningTasks = nil
		return st, nil
	}
	var entries []model.RunningTaskEntry
	if err := json.Unmarshal(running, &entries); err != nil {
		return model.RunnerState{}, fmt.Errorf("parse running tasks for %s: %w", project, err)
	}
	st.RunningTasks = entries
	return st, nil
}

// Save writes both the runner-state file and the running-tasks file for
// project, each via a write-temp-then-rename so a crash mid-write never
// leaves a truncated file behind.
func (s *Store) Save(project string, st model.RunnerState) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	st.UpdatedAt = time.Now()

	runnerOnly := st
	runnerOnly.RunningTasks = nil
	data, err := json.MarshalIndent(runnerOnly, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal runner state for %s: %w", project, err)
	}
	if err := atomicWriteFile(s.runnerPath(project), data); err != nil {
		return err
	}

	entries := st.RunningTasks
	if entries == nil {
		entries = []model.RunningTaskEntry{}
	}
	running, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal running tasks for %s: %w", project, err)
	}
	return atomicWriteFile(s.runningPath(project), running)
}

// WritePID records the supervisor process's own PID for project.
func (s *Store) WritePID(project string, pid int) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return err
	}
	return atomicWriteFile(s.pidPath(project), []byte(strconv.Itoa(pid)))
}

// ReadPID returns the supervisor PID recorded for project, if any.
func (s *Store) ReadPID(project string) (int, error) {
	data, err := os.ReadFile(s.pidPath(project))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// RemovePID deletes the supervisor PID file for project.
func (s *Store) RemovePID(project string) error {
	err := os.Remove(s.pidPath(project))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Projects lists every project with a persisted runner-state file.
func (s *Store) Projects() ([]string, error) {
	entries, err := os.ReadDir(s.stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "runner-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(name, "runner-"), ".json"))
	}
	return out, nil
}

// IsAlive reports whether pid refers to a live process, by sending signal 0
// (no-op liveness probe, the standard POSIX idiom: the kernel still performs
// permission and existence checks without delivering anything to the target).
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
