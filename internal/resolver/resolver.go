// Package resolver implements the dependency resolver (spec §4.1): a pure,
// side-effect-free function from a flat task list to a classified graph.
//
// Grounded on the teacher's domain/task conventions and on the cycle-detection
// style in the pack's process-failed-successfully-recac/internal/runner
// taskgraph.go (DFS-from-each-node over an adjacency list with a visited
// guard), generalized here to BFS with an explicit iteration cap per spec §4.1.
package resolver

import (
	"sort"
	"strings"

	"github.com/huynle/brain/internal/model"
)

// Stats summarizes a DependencyResult (spec §4.1 "Stats").
type Stats struct {
	Total       int
	Ready       int
	Waiting     int
	Blocked     int
	NotPending  int
}

// DependencyResult is the resolver's full output (spec §4.1).
type DependencyResult struct {
	Tasks  []model.ResolvedTask
	Cycles [][]string
	Stats  Stats
}

// maxIterations bounds the per-start BFS cycle probe (spec §4.1: "absolute
// iteration cap (>=100)").
const maxIterations = 200

// Resolve classifies tasks, never failing: unresolved references degrade to
// UnresolvedDeps rather than aborting (spec §4.1 "Failure semantics").
func Resolve(tasks []model.Task) DependencyResult {
	if len(tasks) == 0 {
		return DependencyResult{Tasks: []model.ResolvedTask{}, Cycles: [][]string{}}
	}

	byID := make(map[string]model.Task, len(tasks))
	byTitle := make(map[string]string, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		if t.Title != "" {
			// "duplicates silently shadow earlier bindings" (spec §3 invariants).
			byTitle[t.Title] = t.ID
		}
	}

	resolveRef := func(ref string) (string, bool) {
		if _, ok := byID[ref]; ok {
			return ref, true
		}
		if id, ok := byTitle[ref]; ok {
			return id, true
		}
		return "", false
	}

	resolved := make([]model.ResolvedTask, len(tasks))
	order := make([]string, len(tasks)) // id order matching resolved, for cycle detection adjacency
	for i, t := range tasks {
		rt := model.ResolvedTask{Task: t}
		for _, ref := range t.DependsOn {
			if id, ok := resolveRef(ref); ok {
				rt.ResolvedDeps = append(rt.ResolvedDeps, id)
			} else {
				rt.UnresolvedDeps = append(rt.UnresolvedDeps, ref)
			}
		}
		rt.ParentChain = parentChain(t.ID, byID)
		resolved[i] = rt
		order[i] = t.ID
	}

	byIDResolved := make(map[string]*model.ResolvedTask, len(resolved))
	for i := range resolved {
		byIDResolved[resolved[i].ID] = &resolved[i]
	}

	cycleSet := detectCycles(byIDResolved, order)

	effectiveStatus := func(id string) model.Status {
		if cycleSet[id] {
			return model.EffectiveStatusCircular
		}
		if rt, ok := byIDResolved[id]; ok {
			return rt.Status
		}
		return ""
	}

	for i := range resolved {
		rt := &resolved[i]
		rt.InCycle = cycleSet[rt.ID]
		classify(rt, byIDResolved, effectiveStatus)
	}

	cycles := groupCycles(cycleSet, byIDResolved)

	result := DependencyResult{Tasks: resolved, Cycles: cycles}
	result.Stats = computeStats(resolved)
	return result
}

// parentChain walks ParentID repeatedly, guarding against cycles with a
// visited set. A missing parent terminates the chain with that missing
// reference included (spec §4.1 "Parent chain", spec §9).
func parentChain(id string, byID map[string]model.Task) []string {
	var chain []string
	visited := map[string]bool{id: true}
	current := id
	for i := 0; i < maxIterations; i++ {
		t, ok := byID[current]
		if !ok {
			return chain
		}
		if t.ParentID == "" {
			return chain
		}
		if visited[t.ParentID] {
			return chain // cyclic parent pointers: truncate
		}
		chain = append(chain, t.ParentID)
		visited[t.ParentID] = true
		if _, ok := byID[t.ParentID]; !ok {
			return chain // missing parent terminates, included above
		}
		current = t.ParentID
	}
	return chain
}

// detectCycles performs a bounded BFS from each task over the resolved-deps
// adjacency list; if the frontier revisits the start node, start is a member
// of a cycle (spec §4.1 "Cycle detection").
func detectCycles(byID map[string]*model.ResolvedTask, order []string) map[string]bool {
	inCycle := make(map[string]bool)
	for _, start := range order {
		if bfsFindsSelf(start, byID) {
			inCycle[start] = true
		}
	}
	return inCycle
}

func bfsFindsSelf(start string, byID map[string]*model.ResolvedTask) bool {
	startTask, ok := byID[start]
	if !ok {
		return false
	}
	seen := map[string]bool{}
	queue := append([]string{}, startTask.ResolvedDeps...)
	for i := 0; i < maxIterations && len(queue) > 0; i++ {
		next := queue[0]
		queue = queue[1:]
		if next == start {
			return true
		}
		if seen[next] {
			continue
		}
		seen[next] = true
		t, ok := byID[next]
		if !ok {
			continue
		}
		queue = append(queue, t.ResolvedDeps...)
	}
	return false
}

// groupCycles unions cycle-set members into connected groups by shared
// dependency edges, for display purposes only — membership (not grouping) is
// what invariants are checked against (spec §8).
func groupCycles(cycleSet map[string]bool, byID map[string]*model.ResolvedTask) [][]string {
	if len(cycleSet) == 0 {
		return [][]string{}
	}
	visited := map[string]bool{}
	var groups [][]string
	var ids []string
	for id := range cycleSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if visited[id] {
			continue
		}
		group := collectGroup(id, cycleSet, byID, visited)
		sort.Strings(group)
		groups = append(groups, group)
	}
	return groups
}

func collectGroup(start string, cycleSet map[string]bool, byID map[string]*model.ResolvedTask, visited map[string]bool) []string {
	var group []string
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		group = append(group, id)
		t, ok := byID[id]
		if !ok {
			continue
		}
		for _, dep := range t.ResolvedDeps {
			if cycleSet[dep] && !visited[dep] {
				queue = append(queue, dep)
			}
		}
	}
	return group
}

// classify applies the priority-ordered classification rules (spec §4.1
// "Classification rules"), first match wins.
func classify(rt *model.ResolvedTask, byID map[string]*model.ResolvedTask, effectiveStatus func(string) model.Status) {
	// Rule 1: cycle membership.
	if rt.InCycle {
		rt.Classification = model.ClassificationBlocked
		rt.BlockedByReason = model.ReasonCircularDependency
		rt.BlockedBy = nil
		rt.WaitingOn = nil
		return
	}

	// Rule 2: declared status != pending.
	if rt.Status != model.StatusPending {
		rt.Classification = model.ClassificationNotPending
		return
	}

	// Rule 3: any ancestor in the parent chain is blocked/cancelled or in a cycle.
	var blockedAncestors []string
	for _, ancestorID := range rt.ParentChain {
		st := effectiveStatus(ancestorID)
		if st == model.StatusBlocked || st == model.StatusCancelled || st == model.EffectiveStatusCircular {
			blockedAncestors = append(blockedAncestors, ancestorID)
		}
	}
	if len(blockedAncestors) > 0 {
		rt.Classification = model.ClassificationBlockedByParent
		rt.BlockedBy = blockedAncestors
		rt.BlockedByReason = model.ReasonParentBlocked
		return
	}

	// Rule 4: direct parent not in an "advancing" status.
	if rt.ParentID != "" {
		st := effectiveStatus(rt.ParentID)
		if st != model.StatusActive && st != model.StatusInProgress && st != model.StatusCompleted {
			rt.Classification = model.ClassificationWaitingOnParent
			rt.WaitingOn = []string{rt.ParentID}
			return
		}
	}

	// Rule 5: any resolved dependency is blocked/cancelled or in a cycle.
	var blockedDeps []string
	for _, depID := range rt.ResolvedDeps {
		st := effectiveStatus(depID)
		if st == model.StatusBlocked || st == model.StatusCancelled || st == model.EffectiveStatusCircular {
			blockedDeps = append(blockedDeps, depID)
		}
	}
	if len(blockedDeps) > 0 {
		rt.Classification = model.ClassificationBlocked
		rt.BlockedBy = blockedDeps
		rt.BlockedByReason = model.ReasonDependencyBlocked
		return
	}

	// Rule 6: any resolved dependency is pending/in_progress.
	var waitingDeps []string
	for _, depID := range rt.ResolvedDeps {
		st := effectiveStatus(depID)
		if st == model.StatusPending || st == model.StatusInProgress {
			waitingDeps = append(waitingDeps, depID)
		}
	}
	if len(waitingDeps) > 0 {
		rt.Classification = model.ClassificationWaiting
		rt.WaitingOn = waitingDeps
		return
	}

	// Rule 7: otherwise ready.
	rt.Classification = model.ClassificationReady
}

func computeStats(tasks []model.ResolvedTask) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		switch t.Classification {
		case model.ClassificationReady:
			s.Ready++
		case model.ClassificationWaiting, model.ClassificationWaitingOnParent:
			s.Waiting++
		case model.ClassificationBlocked, model.ClassificationBlockedByParent:
			s.Blocked++
		case model.ClassificationNotPending:
			s.NotPending++
		}
	}
	return s
}

// priorityRank maps a priority to a sort weight; unknown priorities coerce to
// medium (spec §4.1 "Priority sort").
func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityLow:
		return 2
	default:
		return 1
	}
}

// Ready returns the ready tasks from a classified list, ordered by priority
// then creation timestamp ascending (spec §4.1 "Priority sort").
func Ready(tasks []model.ResolvedTask) []model.ResolvedTask {
	var ready []model.ResolvedTask
	for _, t := range tasks {
		if t.Classification == model.ClassificationReady {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		ri, rj := priorityRank(ready[i].Priority), priorityRank(ready[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	return ready
}

// Next returns the single highest-priority ready task, or nil if none.
func Next(tasks []model.ResolvedTask) *model.ResolvedTask {
	ready := Ready(tasks)
	if len(ready) == 0 {
		return nil
	}
	return &ready[0]
}

// Waiting returns tasks classified waiting or waiting_on_parent.
func Waiting(tasks []model.ResolvedTask) []model.ResolvedTask {
	var out []model.ResolvedTask
	for _, t := range tasks {
		if t.Classification == model.ClassificationWaiting || t.Classification == model.ClassificationWaitingOnParent {
			out = append(out, t)
		}
	}
	return out
}

// Blocked returns tasks classified blocked or blocked_by_parent.
func Blocked(tasks []model.ResolvedTask) []model.ResolvedTask {
	var out []model.ResolvedTask
	for _, t := range tasks {
		if t.Classification == model.ClassificationBlocked || t.Classification == model.ClassificationBlockedByParent {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeReference strips a ".md" suffix and a "projects/<project>/task/"
// prefix, and splits a "project:id" cross-project form, returning
// (project, reference) where project is "" for an intra-project reference
// (spec §4.2 "Dependency validation").
func NormalizeReference(raw string) (project, ref string) {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ":"); idx > 0 && !strings.Contains(raw[:idx], "/") {
		project = raw[:idx]
		raw = raw[idx+1:]
	}
	raw = strings.TrimSuffix(raw, ".md")
	if idx := strings.Index(raw, "/task/"); idx >= 0 {
		prefix := raw[:idx]
		if strings.HasPrefix(prefix, "projects/") {
			parts := strings.SplitN(strings.TrimPrefix(prefix, "projects/"), "/", 2)
			if project == "" && len(parts) > 0 {
				project = parts[0]
			}
			raw = raw[idx+len("/task/"):]
		}
	}
	return project, raw
}
