// Package taskstore implements the task service (spec §4.2): project
// discovery, task loading via an external indexer subprocess, workdir
// resolution, and dependency-reference validation for task-write paths.
//
// The markdown/note store and its indexer are explicitly out of scope (spec
// §1 "Explicitly out of scope") — this package only shells out to it and
// parses its JSON output, grounded on the subprocess-invocation style of
// internal/devops/process/manager.go and internal/coding/detect.go.
package taskstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/huynle/brain/internal/errtypes"
)

// IndexEntry is one record of the indexer's JSON-list output.
type IndexEntry struct {
	ID               string   `json:"id"`
	Path             string   `json:"path"`
	Title            string   `json:"title"`
	Priority         string   `json:"priority"`
	Status           string   `json:"status"`
	DependsOn        []string `json:"depends_on"`
	ParentID         string   `json:"parent_id"`
	WorkDir          string   `json:"workdir"`
	GitBranch        string   `json:"git_branch"`
	TargetWorkDir    string   `json:"target_workdir"`
	DirectPrompt     string   `json:"direct_prompt"`
	Agent            string   `json:"agent"`
	Model            string   `json:"model"`
	FeatureID        string   `json:"feature_id"`
	FeaturePriority  string   `json:"feature_priority"`
	FeatureDependsOn []string `json:"feature_depends_on"`
	CreatedAtUnixMs  int64    `json:"created_at_ms"`
}

// Indexer runs the external note-store indexer and returns its entries for a
// directory-scoped query. Implementations shell out to a subprocess; tests
// substitute a fake.
type Indexer interface {
	Query(ctx context.Context, dir string) ([]IndexEntry, error)
}

// SubprocessIndexer invokes a configured binary once per Query call, passing
// the directory as the final argument after any configured Args and expecting a JSON array
// on stdout.
type SubprocessIndexer struct {
	Binary string
	Args   []string
}

// NewSubprocessIndexer returns an Indexer backed by binary.
func NewSubprocessIndexer(binary string, extraArgs ...string) *SubprocessIndexer {
	return &SubprocessIndexer{Binary: binary, Args: extraArgs}
}

// Query shells out to the indexer binary. A missing binary surfaces as
// IndexerUnavailableError (spec §4.2, §7); empty stdout is a valid
// no-tasks result, not an error.
func (s *SubprocessIndexer) Query(ctx context.Context, dir string) ([]IndexEntry, error) {
	if _, err := exec.LookPath(s.Binary); err != nil {
		return nil, &errtypes.IndexerUnavailableError{Err: err}
	}

	args := append(append([]string{}, s.Args...), dir)
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if isExitError(err, &exitErr) {
			return nil, fmt.Errorf("indexer exited %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, &errtypes.IndexerUnavailableError{Err: err}
	}

	trimmed := bytes.TrimSpace(stdout.Bytes())
	if len(trimmed) == 0 {
		return []IndexEntry{}, nil
	}

	var entries []IndexEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("parse indexer output: %w", err)
	}
	return entries, nil
}

func isExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}
