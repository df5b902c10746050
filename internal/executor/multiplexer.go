package executor

import "context"

// Multiplexer abstracts the terminal-multiplexer OS dependency the TUI and
// dashboard spawn modes rely on for windowing and pane management (spec §9
// "Subprocess orchestration": "model it as an injected interface ... so the
// core is testable with a fake").
type Multiplexer interface {
	// NewWindow opens a new window in session running script, returning the
	// window's identifier.
	NewWindow(ctx context.Context, session, windowName, script string) (windowID string, err error)
	// SplitPane splits targetPane, running script in the new pane, returning
	// its identifier (spec §4.4: "must start with %").
	SplitPane(ctx context.Context, targetPane, script string) (paneID string, err error)
	// ListPanes lists panes of session.
	ListPanes(ctx context.Context, session string) ([]PaneInfo, error)
	// PaneExists reports whether paneID is currently present.
	PaneExists(ctx context.Context, paneID string) (bool, error)
	// SetTitle sets a pane's displayed title.
	SetTitle(ctx context.Context, paneID, title string) error
	// KillPane destroys a pane.
	KillPane(ctx context.Context, paneID string) error
}

// PaneInfo is a single pane's multiplexer-reported identity.
type PaneInfo struct {
	PaneID string
	PID    int
}
