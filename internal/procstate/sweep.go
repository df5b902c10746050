package procstate

import (
	"os"

	"github.com/huynle/brain/internal/model"
)

// FleetSweep enumerates every project with a persisted runner-state file and
// removes that project's state and PID files when its recorded supervisor PID
// is missing or not alive (spec §4.5 "Stale-state sweep", run fleet-wide at
// process start). Returns the projects it cleaned up.
func (s *Store) FleetSweep() ([]string, error) {
	projects, err := s.Projects()
	if err != nil {
		return nil, err
	}
	var cleaned []string
	for _, project := range projects {
		pid, err := s.ReadPID(project)
		if err != nil || !IsAlive(pid) {
			_ = s.RemovePID(project)
			_ = os.Remove(s.runnerPath(project))
			_ = os.Remove(s.runningPath(project))
			cleaned = append(cleaned, project)
		}
	}
	return cleaned, nil
}

// Sweep removes dead entries from st.RunningTasks and returns the entries
// found dead alongside the updated state, so the runner's recovery logic can
// decide whether to re-spawn (in_progress tasks) or drop them (terminal
// tasks) (spec §4.5 "Crash recovery").
func Sweep(st model.RunnerState) (model.RunnerState, []model.RunningTaskEntry) {
	var alive []model.RunningTaskEntry
	var dead []model.RunningTaskEntry
	for _, entry := range st.RunningTasks {
		if IsAlive(entry.PID) {
			alive = append(alive, entry)
		} else {
			dead = append(dead, entry)
		}
	}
	st.RunningTasks = alive
	return st, dead
}

// Upsert inserts or replaces the entry for taskID.
func Upsert(st model.RunnerState, entry model.RunningTaskEntry) model.RunnerState {
	for i, e := range st.RunningTasks {
		if e.TaskID == entry.TaskID {
			st.RunningTasks[i] = entry
			return st
		}
	}
	st.RunningTasks = append(st.RunningTasks, entry)
	return st
}

// Remove drops the entry for taskID, if present.
func Remove(st model.RunnerState, taskID string) model.RunnerState {
	var out []model.RunningTaskEntry
	for _, e := range st.RunningTasks {
		if e.TaskID != taskID {
			out = append(out, e)
		}
	}
	st.RunningTasks = out
	return st
}
