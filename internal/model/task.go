// Package model defines the data model shared across the resolver, task
// service, worktree manager, executor, and runner supervisor (spec §3).
package model

import "time"

// Priority is a task's scheduling priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is a task's declared lifecycle status.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
	StatusValidated  Status = "validated"
	StatusSuperseded Status = "superseded"
	StatusArchived   Status = "archived"
)

// EffectiveStatusCircular is the synthetic effective-status value assigned to
// any task that is a member of a dependency cycle (spec §4.1 "Effective status map").
const EffectiveStatusCircular Status = "circular"

// Task is loaded from a markdown front-matter blob under
// projects/<project>/task/ (spec §3).
type Task struct {
	ID       string
	Project  string
	Path     string
	Title    string
	Priority Priority
	Status   Status

	// DependsOn holds raw references as they appear in front matter: an id,
	// a title, a "project:id" cross-project reference, or a normalized path form.
	DependsOn []string

	ParentID string

	WorkDir        string
	GitBranch      string
	TargetWorkDir  string
	DirectPrompt   string
	Agent          string
	Model          string
	FeatureID      string
	FeaturePriority Priority
	FeatureDependsOn []string

	CreatedAt time.Time
}

// Classification is the resolver's five-way (plus not_pending) outcome for a task.
type Classification string

const (
	ClassificationReady             Classification = "ready"
	ClassificationWaiting           Classification = "waiting"
	ClassificationWaitingOnParent   Classification = "waiting_on_parent"
	ClassificationBlocked           Classification = "blocked"
	ClassificationBlockedByParent   Classification = "blocked_by_parent"
	ClassificationNotPending        Classification = "not_pending"
)

// Blocking reasons, stable strings persisted alongside blocked_by.
const (
	ReasonCircularDependency = "circular_dependency"
	ReasonParentBlocked      = "parent_blocked"
	ReasonDependencyBlocked  = "dependency_blocked"
)

// ResolvedTask extends Task with resolver-computed fields (spec §3).
type ResolvedTask struct {
	Task

	ResolvedDeps   []string // ids
	UnresolvedDeps []string // raw references that did not resolve

	// ParentChain runs immediate-parent -> root. A missing parent terminates
	// the chain with that missing reference included (spec §9).
	ParentChain []string

	Classification   Classification
	BlockedBy        []string // ids of blocking ancestors/dependencies
	BlockedByReason  string
	WaitingOn        []string // ids
	InCycle          bool
	ResolvedWorkDir  string
}

// RunningTaskEntry is one entry of RunnerState.RunningTasks (spec §3).
type RunningTaskEntry struct {
	TaskID        string    `json:"taskId"`
	PID           int       `json:"pid"`
	PaneID        string    `json:"paneId,omitempty"`
	WindowName    string    `json:"windowName,omitempty"`
	OpencodePort  int       `json:"opencodePort,omitempty"`
	SpawnedAt     time.Time `json:"spawnedAt"`
}

// RunnerStatus is the per-project supervisor state machine value (spec §4.5/§4.7).
type RunnerStatus string

const (
	RunnerIdle    RunnerStatus = "idle"
	RunnerRunning RunnerStatus = "running"
	RunnerPaused  RunnerStatus = "paused"
	RunnerStopped RunnerStatus = "stopped"
)

// RunnerStats summarizes runner activity for display.
type RunnerStats struct {
	TotalSpawned   int `json:"totalSpawned"`
	TotalCompleted int `json:"totalCompleted"`
	TotalFailed    int `json:"totalFailed"`
}

// RunnerState is the per-project persisted supervisor state (spec §3).
type RunnerState struct {
	Status       RunnerStatus       `json:"status"`
	StartedAt    time.Time          `json:"startedAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	RunningTasks []RunningTaskEntry `json:"runningTasks"`
	Stats        RunnerStats        `json:"stats"`
}
