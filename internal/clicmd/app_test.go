package clicmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynle/brain/internal/brainconfig"
	"github.com/huynle/brain/internal/model"
	"github.com/huynle/brain/internal/procstate"
	"github.com/huynle/brain/internal/taskstore"
)

type fakeIndexer struct{}

func (fakeIndexer) Query(ctx context.Context, dir string) ([]taskstore.IndexEntry, error) {
	return nil, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	brainDir := t.TempDir()
	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, os.MkdirAll(filepath.Join(brainDir, "projects", name, "task"), 0o755))
	}
	cfg := brainconfig.Config{BrainDir: brainDir, DefaultWorkDir: brainDir}
	return &App{
		Cfg:   cfg,
		Tasks: taskstore.New(brainDir, brainDir, brainDir, fakeIndexer{}),
		State: procstate.New(cfg.StateDir()),
	}
}

func TestProjectOrAllWithExplicitProject(t *testing.T) {
	app := newTestApp(t)
	projects, err := app.projectOrAll("alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, projects)
}

func TestProjectOrAllEmptyListsAll(t *testing.T) {
	app := newTestApp(t)
	projects, err := app.projectOrAll("")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, projects)
}

func TestProjectOrAllLiteralAllListsAll(t *testing.T) {
	app := newTestApp(t)
	projects, err := app.projectOrAll("all")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, projects)
}

func TestStatusLineFormatsCounts(t *testing.T) {
	st := model.RunnerState{
		Status:       model.RunnerRunning,
		RunningTasks: []model.RunningTaskEntry{{TaskID: "t1"}},
		Stats:        model.RunnerStats{TotalSpawned: 4, TotalCompleted: 2, TotalFailed: 1},
	}
	line := statusLine("alpha", st)
	assert.Contains(t, line, "alpha")
	assert.Contains(t, line, "running=1")
	assert.Contains(t, line, "spawned=4")
	assert.Contains(t, line, "completed=2")
	assert.Contains(t, line, "failed=1")
}
