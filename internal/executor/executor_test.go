package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynle/brain/internal/model"
)

type fakeMux struct {
	newWindowID string
	panes       []PaneInfo
	splitPaneID string
	splitErrs   []error
	paneExists  bool
}

func (f *fakeMux) NewWindow(ctx context.Context, session, name, script string) (string, error) {
	return f.newWindowID, nil
}

func (f *fakeMux) SplitPane(ctx context.Context, target, script string) (string, error) {
	if len(f.splitErrs) > 0 {
		err := f.splitErrs[0]
		f.splitErrs = f.splitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.splitPaneID, nil
}

func (f *fakeMux) ListPanes(ctx context.Context, session string) ([]PaneInfo, error) {
	return f.panes, nil
}

func (f *fakeMux) PaneExists(ctx context.Context, paneID string) (bool, error) {
	return f.paneExists, nil
}

func (f *fakeMux) SetTitle(ctx context.Context, paneID, title string) error { return nil }
func (f *fakeMux) KillPane(ctx context.Context, paneID string) error        { return nil }

func testExecutor(t *testing.T, mux Multiplexer) *Executor {
	e := New(t.TempDir(), "true", mux, nil)
	e.commandFn = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "exit 0")
	}
	return e
}

func TestSpawnBackground(t *testing.T) {
	e := testExecutor(t, nil)
	task := model.Task{ID: "t1", Path: "projects/demo/task/t1.md"}
	handle, err := e.Spawn(context.Background(), SpawnRequest{
		Project: "demo",
		Task:    task,
		WorkDir: t.TempDir(),
		Mode:    ModeBackground,
	})
	require.NoError(t, err)
	assert.NotZero(t, handle.PID)
	assert.Equal(t, "t1", handle.TaskID)

	errs := handle.Cleanup()
	assert.Empty(t, errs)
}

func TestSpawnDashboard(t *testing.T) {
	mux := &fakeMux{splitPaneID: "%3", paneExists: true, panes: []PaneInfo{{PaneID: "%3", PID: 4242}}}
	e := testExecutor(t, mux)
	task := model.Task{ID: "t2", Title: "A very long task title that exceeds forty characters for truncation"}
	handle, err := e.Spawn(context.Background(), SpawnRequest{
		Project:    "demo",
		Task:       task,
		WorkDir:    t.TempDir(),
		Mode:       ModeDashboard,
		TargetPane: "%1",
	})
	require.NoError(t, err)
	assert.Equal(t, "%3", handle.PaneID)
	assert.Equal(t, 4242, handle.PID)
}

func TestSpawnDashboardRejectsBadPaneID(t *testing.T) {
	mux := &fakeMux{splitPaneID: "notapane", paneExists: true}
	e := testExecutor(t, mux)
	task := model.Task{ID: "t3"}
	_, err := e.Spawn(context.Background(), SpawnRequest{
		Project: "demo", Task: task, WorkDir: t.TempDir(), Mode: ModeDashboard, TargetPane: "%1",
	})
	require.Error(t, err)
}

func TestSpawnDashboardMissingTargetPaneFails(t *testing.T) {
	mux := &fakeMux{paneExists: false}
	e := testExecutor(t, mux)
	task := model.Task{ID: "t4"}
	_, err := e.Spawn(context.Background(), SpawnRequest{
		Project: "demo", Task: task, WorkDir: t.TempDir(), Mode: ModeDashboard, TargetPane: "",
	})
	require.Error(t, err)
}

func TestSpawnTUIOpensWindow(t *testing.T) {
	mux := &fakeMux{newWindowID: "@5", panes: []PaneInfo{{PaneID: "%9", PID: 777}}}
	e := testExecutor(t, mux)
	task := model.Task{ID: "t5"}
	handle, err := e.Spawn(context.Background(), SpawnRequest{
		Project: "demo", Task: task, WorkDir: t.TempDir(), Mode: ModeTUI, TmuxSession: "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "@5", handle.WindowName)
	assert.Equal(t, 777, handle.PID)
}
