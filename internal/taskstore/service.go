package taskstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/huynle/brain/internal/model"
	"github.com/huynle/brain/internal/resolver"
)

// nonBranchChar matches any character outside [A-Za-z0-9_-], used when
// sanitizing a branch name into a worktree directory name (spec §4.2).
var nonBranchChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeBranch replaces "/" with "-" then strips characters outside
// [A-Za-z0-9_-] (spec §4.2 "Branch sanitization").
func SanitizeBranch(branch string) string {
	replaced := strings.ReplaceAll(branch, "/", "-")
	return nonBranchChar.ReplaceAllString(replaced, "")
}

// Service lists projects and loads their tasks, amortizing indexer cost by
// indexing once at process start rather than per request (spec §4.2).
type Service struct {
	BrainDir string
	Home     string
	DefaultWorkDir string

	indexer Indexer

	mu      sync.RWMutex
	indexed bool
	byProject map[string][]model.Task
}

// New constructs a Service. home and defaultWorkDir feed workdir resolution
// (spec §4.2 "Workdir resolution for execution").
func New(brainDir, home, defaultWorkDir string, indexer Indexer) *Service {
	return &Service{
		BrainDir:       brainDir,
		Home:           home,
		DefaultWorkDir: defaultWorkDir,
		indexer:        indexer,
		byProject:      make(map[string][]model.Task),
	}
}

// ListProjects scans <BrainDir>/projects for subdirectories containing a
// task/ subdirectory, returning names sorted lexicographically (spec §4.2).
func (s *Service) ListProjects() ([]string, error) {
	root := filepath.Join(s.BrainDir, "projects")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}
	var projects []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		taskDir := filepath.Join(root, e.Name(), "task")
		if info, err := os.Stat(taskDir); err == nil && info.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// EnsureIndexed runs the indexer exactly once across the whole projects
// tree, amortizing cost (spec §4.2 "Indexing itself is done once at process
// start, not per request").
func (s *Service) EnsureIndexed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	entries, err := s.indexer.Query(ctx, filepath.Join(s.BrainDir, "projects"))
	if err != nil {
		return err
	}
	s.byProject = make(map[string][]model.Task)
	for _, e := range entries {
		project := projectFromPath(e.Path)
		if project == "" {
			continue
		}
		s.byProject[project] = append(s.byProject[project], taskFromEntry(project, e))
	}
	s.indexed = true
	return nil
}

// Reindex forces the next EnsureIndexed call to re-query the indexer.
func (s *Service) Reindex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = false
}

// Tasks returns the tasks loaded for a project, after ensuring the index has
// run at least once.
func (s *Service) Tasks(ctx context.Context, project string) ([]model.Task, error) {
	if err := s.EnsureIndexed(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task{}, s.byProject[project]...), nil
}

// Classified returns the resolver's classification of a project's tasks.
func (s *Service) Classified(ctx context.Context, project string) (resolver.DependencyResult, error) {
	tasks, err := s.Tasks(ctx, project)
	if err != nil {
		return resolver.DependencyResult{}, err
	}
	return resolver.Resolve(tasks), nil
}

// MarkStatus rewrites a task's status in its front matter and forces the
// next EnsureIndexed call to re-query, so the change is observable by the
// following tick (spec §3 "Task: pending → (supervisor marks) in_progress").
func (s *Service) MarkStatus(ctx context.Context, project, taskID string, status model.Status) error {
	tasks, err := s.Tasks(ctx, project)
	if err != nil {
		return err
	}
	var path string
	for _, t := range tasks {
		if t.ID == taskID {
			path = t.Path
			break
		}
	}
	if path == "" {
		return fmt.Errorf("task %s not found in project %s", taskID, project)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.BrainDir, path)
	}
	if err := writeStatus(full, status); err != nil {
		return err
	}
	s.Reindex()
	return nil
}

// ResolveEntryPath resolves an "<id-or-path>" reference (spec §6 "Entry
// sections") to an absolute markdown file path: a value containing a path
// separator or a ".md" suffix is treated as a path relative to BrainDir;
// otherwise every project is searched for a task with a matching ID.
func (s *Service) ResolveEntryPath(ctx context.Context, idOrPath string) (string, error) {
	if strings.ContainsRune(idOrPath, '/') || strings.HasSuffix(idOrPath, ".md") {
		full := idOrPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(s.BrainDir, idOrPath)
		}
		if _, err := os.Stat(full); err != nil {
			return "", fmt.Errorf("entry not found: %s", idOrPath)
		}
		return full, nil
	}

	projects, err := s.ListProjects()
	if err != nil {
		return "", err
	}
	for _, project := range projects {
		tasks, err := s.Tasks(ctx, project)
		if err != nil {
			return "", err
		}
		for _, t := range tasks {
			if t.ID == idOrPath {
				full := t.Path
				if !filepath.IsAbs(full) {
					full = filepath.Join(s.BrainDir, full)
				}
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("entry not found: %s", idOrPath)
}

func projectFromPath(path string) string {
	path = strings.TrimPrefix(path, "projects/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func taskFromEntry(project string, e IndexEntry) model.Task {
	var created time.Time
	if e.CreatedAtUnixMs > 0 {
		created = time.UnixMilli(e.CreatedAtUnixMs)
	} else {
		created = createdAtFromID(e.ID)
	}
	return model.Task{
		ID:               e.ID,
		Project:          project,
		Path:             e.Path,
		Title:            e.Title,
		Priority:         model.Priority(e.Priority),
		Status:           model.Status(e.Status),
		DependsOn:        e.DependsOn,
		ParentID:         e.ParentID,
		WorkDir:          e.WorkDir,
		GitBranch:        e.GitBranch,
		TargetWorkDir:    e.TargetWorkDir,
		DirectPrompt:     e.DirectPrompt,
		Agent:            e.Agent,
		Model:            e.Model,
		FeatureID:        e.FeatureID,
		FeaturePriority:  model.Priority(e.FeaturePriority),
		FeatureDependsOn: e.FeatureDependsOn,
		CreatedAt:        created,
	}
}

// createdAtFromID extracts the epoch-ms prefix from a "<13-digit>-<slug>" id
// form (spec §3 "id"); 8-char alphanumeric ids have no embedded timestamp
// and resolve to the zero time, which sorts first under Ready's ascending
// creation-time tiebreak.
func createdAtFromID(id string) time.Time {
	idx := strings.Index(id, "-")
	if idx != 13 {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(id[:idx], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// ResolveWorkDir implements the priority chain from spec §4.2 "Workdir
// resolution for execution": target_workdir override, then the derived
// worktree directory, then <HOME>/<workdir>, then the configured default.
func (s *Service) ResolveWorkDir(t model.Task) string {
	if t.TargetWorkDir != "" {
		if _, err := os.Stat(t.TargetWorkDir); err == nil {
			return t.TargetWorkDir
		}
	}
	if t.WorkDir != "" && t.GitBranch != "" {
		worktree := filepath.Join(s.Home, t.WorkDir, ".worktrees", SanitizeBranch(t.GitBranch))
		if info, err := os.Stat(worktree); err == nil && info.IsDir() {
			return worktree
		}
	}
	if t.WorkDir != "" {
		main := filepath.Join(s.Home, t.WorkDir)
		if info, err := os.Stat(main); err == nil && info.IsDir() {
			return main
		}
	}
	return s.DefaultWorkDir
}

// ValidateDependency normalizes a raw reference and resolves it against the
// target project's current tasks (spec §4.2 "Dependency validation"),
// returning up to 3 nearest-match title suggestions when unresolved.
type ValidationResult struct {
	Project     string
	Reference   string
	ResolvedID  string
	Resolved    bool
	Suggestions []string
}

func (s *Service) ValidateDependency(ctx context.Context, project, raw string) (ValidationResult, error) {
	refProject, ref := resolver.NormalizeReference(raw)
	targetProject := project
	if refProject != "" {
		targetProject = refProject
	}

	tasks, err := s.Tasks(ctx, targetProject)
	if err != nil {
		return ValidationResult{}, err
	}

	byID := map[string]bool{}
	byTitle := map[string]string{}
	for _, t := range tasks {
		byID[t.ID] = true
		byTitle[t.Title] = t.ID
	}

	if byID[ref] {
		return ValidationResult{Project: targetProject, Reference: ref, ResolvedID: ref, Resolved: true}, nil
	}
	if id, ok := byTitle[ref]; ok {
		return ValidationResult{Project: targetProject, Reference: ref, ResolvedID: id, Resolved: true}, nil
	}

	return ValidationResult{
		Project:     targetProject,
		Reference:   ref,
		Resolved:    false,
		Suggestions: nearestTitles(ref, tasks, 3),
	}, nil
}

func nearestTitles(ref string, tasks []model.Task, limit int) []string {
	lowerRef := strings.ToLower(ref)
	var matches []string
	for _, t := range tasks {
		lowerTitle := strings.ToLower(t.Title)
		if strings.Contains(lowerTitle, lowerRef) || strings.Contains(lowerRef, lowerTitle) {
			matches = append(matches, t.Title)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches
}
