package clicmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	want := []string{"start", "start-bg", "stop", "status", "list", "ready", "waiting", "blocked", "run-one", "logs", "config"}
	got := make(map[string]bool)
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "expected subcommand %q to be registered", name)
	}
}

func TestNewRootCommandHasConfigFlag(t *testing.T) {
	root := NewRootCommand()
	flag := root.PersistentFlags().Lookup("config")
	assert.NotNil(t, flag)
}
