package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTmuxBinary writes a shell script that stands in for the tmux binary,
// dispatching on its first argument (the tmux subcommand) the way the real
// binary's tests elsewhere in this package stub external processes.
func fakeTmuxBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-tmux.sh")
	script := `#!/bin/sh
case "$1" in
  new-window) echo "@3" ;;
  split-window) echo "%7" ;;
  list-panes) printf '%%5 111\n%%6 222\n' ;;
  display-message) echo "%5" ;;
  select-pane) exit 0 ;;
  kill-pane) exit 0 ;;
  *) exit 1 ;;
esac
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestTmuxMultiplexerNewWindow(t *testing.T) {
	m := NewTmuxMultiplexer(fakeTmuxBinary(t))
	id, err := m.NewWindow(context.Background(), "sess", "win", "run.sh")
	require.NoError(t, err)
	assert.Equal(t, "@3", id)
}

func TestTmuxMultiplexerSplitPane(t *testing.T) {
	m := NewTmuxMultiplexer(fakeTmuxBinary(t))
	id, err := m.SplitPane(context.Background(), "@3", "run.sh")
	require.NoError(t, err)
	assert.Equal(t, "%7", id)
}

func TestTmuxMultiplexerListPanes(t *testing.T) {
	m := NewTmuxMultiplexer(fakeTmuxBinary(t))
	panes, err := m.ListPanes(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, panes, 2)
	assert.Equal(t, PaneInfo{PaneID: "%5", PID: 111}, panes[0])
	assert.Equal(t, PaneInfo{PaneID: "%6", PID: 222}, panes[1])
}

func TestTmuxMultiplexerPaneExists(t *testing.T) {
	m := NewTmuxMultiplexer(fakeTmuxBinary(t))
	ok, err := m.PaneExists(context.Background(), "%5")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTmuxMultiplexerPaneExistsFalseOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake-tmux-fail.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	m := NewTmuxMultiplexer(path)
	ok, err := m.PaneExists(context.Background(), "%dead")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTmuxMultiplexerSetTitleAndKillPane(t *testing.T) {
	m := NewTmuxMultiplexer(fakeTmuxBinary(t))
	require.NoError(t, m.SetTitle(context.Background(), "%5", "demo"))
	require.NoError(t, m.KillPane(context.Background(), "%5"))
}

func TestTmuxMultiplexerDefaultBinary(t *testing.T) {
	m := NewTmuxMultiplexer("")
	assert.Equal(t, "tmux", m.Binary)
}
