package executor

import "os"

// Cleanup deletes the per-task prompt file, wrapper script, and output log
// on task completion. Best-effort: failures are returned but callers should
// log, not surface, them (spec §4.4 "Cleanup").
func (h *Handle) Cleanup() []error {
	var errs []error
	for _, path := range []string{h.promptPath, h.scriptPath, h.logPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errs
}
