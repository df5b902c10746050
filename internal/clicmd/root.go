package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huynle/brain/internal/brainconfig"
)

// NewRootCommand builds the "brain" root command and its subcommand tree
// (spec §6 "CLI"). An unknown first token that isn't a flag is treated as
// `start <project>`, mirrored below via rootCmd.RunE's fallback.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "brain",
		Short: "Multi-project task runner and dependency scheduler",
		Long: `brain drives per-project task supervisors: it resolves dependency
graphs over markdown-defined tasks, spawns an assistant subprocess for each
ready task, and tracks liveness across restarts.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			// Unknown first token: treat as `start <project>`.
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			return runStart(cmd, app, args[0], false)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to brain config YAML")

	root.AddCommand(
		newStartCommand(&configPath),
		newStartBgCommand(&configPath),
		newStopCommand(&configPath),
		newStatusCommand(&configPath),
		newListCommand(&configPath),
		newSelectionCommand(&configPath, "ready"),
		newSelectionCommand(&configPath, "waiting"),
		newSelectionCommand(&configPath, "blocked"),
		newRunOneCommand(&configPath),
		newLogsCommand(&configPath),
		newConfigCommand(&configPath),
	)

	return root
}

func loadApp(configPath string) (*App, error) {
	cfg, err := brainconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApp(cfg)
}

// Execute runs the root command and returns the process exit code (spec §6
// "Exit codes: 0 success; 1 usage or runtime error").
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Println("Error:", err)
		return 1
	}
	return 0
}
