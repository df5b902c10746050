package clicmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/huynle/brain/internal/procstate"
	"github.com/huynle/brain/internal/resolver"
)

func newStartCommand(configPath *string) *cobra.Command {
	var background bool
	cmd := &cobra.Command{
		Use:   "start <project|all>",
		Short: "Start the supervisor for a project (or all projects)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			tui, _ := cmd.Flags().GetBool("tui")
			return runStart(cmd, app, args[0], background && !tui)
		},
	}
	cmd.Flags().Bool("tui", false, "start brain-runner with --mode tui")
	cmd.Flags().BoolVar(&background, "background", true, "run the supervisor detached (default)")
	return cmd
}

func newStartBgCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start-bg <project>",
		Short: "Start the supervisor for a project, always detached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			return runStart(cmd, app, args[0], true)
		},
	}
}

// runStart spawns a detached brain-runner process per selected project
// (spec §6 "start <project|all> [--tui|--background]"). The supervisor's own
// PID is recorded via procstate so stop/status can find it.
func runStart(cmd *cobra.Command, app *App, projectArg string, forceBackground bool) error {
	projects, err := app.projectOrAll(projectArg)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		return fmt.Errorf("no projects found under %s", app.Cfg.ProjectsDir())
	}

	mode := "background"
	if !forceBackground {
		if tui, _ := cmd.Flags().GetBool("tui"); tui {
			mode = "tui"
		}
	}

	for _, project := range projects {
		if pid, err := app.State.ReadPID(project); err == nil && procstate.IsAlive(pid) {
			fmt.Printf("%s already running (pid %d)\n", project, pid)
			continue
		}

		logPath := filepath.Join(app.Cfg.StateDir(), fmt.Sprintf("supervisor_%s.log", project))
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open supervisor log for %s: %w", project, err)
		}

		runnerCmd := exec.Command(app.RunnerBinary, "--project", project, "--mode", mode)
		runnerCmd.Stdout = logFile
		runnerCmd.Stderr = logFile
		runnerCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

		if err := runnerCmd.Start(); err != nil {
			logFile.Close()
			return fmt.Errorf("start supervisor for %s: %w", project, err)
		}
		if err := app.State.WritePID(project, runnerCmd.Process.Pid); err != nil {
			return fmt.Errorf("record supervisor pid for %s: %w", project, err)
		}
		fmt.Printf("%s started (pid %d, mode %s)\n", project, runnerCmd.Process.Pid, mode)
	}
	return nil
}

func newStopCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [project]",
		Short: "Stop one project's supervisor, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			project := ""
			if len(args) > 0 {
				project = args[0]
			}
			projects, err := app.projectOrAll(project)
			if err != nil {
				return err
			}
			for _, p := range projects {
				pid, err := app.State.ReadPID(p)
				if err != nil {
					continue
				}
				if !procstate.IsAlive(pid) {
					_ = app.State.RemovePID(p)
					continue
				}
				if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
					fmt.Printf("%s: failed to signal pid %d: %v\n", p, pid, err)
					continue
				}
				fmt.Printf("%s stopped (pid %d)\n", p, pid)
			}
			return nil
		},
	}
}

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status [project]",
		Short: "Show supervisor status for a project, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			project := ""
			if len(args) > 0 {
				project = args[0]
			}
			projects, err := app.projectOrAll(project)
			if err != nil {
				return err
			}
			sort.Strings(projects)
			for _, p := range projects {
				st, err := app.State.Load(p)
				if err != nil {
					return err
				}
				fmt.Println(statusLine(p, st))
			}
			return nil
		},
	}
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list [project]",
		Short: "List tasks for a project, or all project names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				projects, err := app.Tasks.ListProjects()
				if err != nil {
					return err
				}
				for _, p := range projects {
					fmt.Println(p)
				}
				return nil
			}
			result, err := app.Tasks.Classified(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, t := range result.Tasks {
				fmt.Printf("%-12s %-20s %-10s %s\n", t.ID, t.Classification, t.Status, t.Title)
			}
			return nil
		},
	}
}

func newSelectionCommand(configPath *string, selection string) *cobra.Command {
	return &cobra.Command{
		Use:   selection + " <project>",
		Short: "List " + selection + " tasks for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			result, err := app.Tasks.Classified(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var tasks []string
			switch selection {
			case "ready":
				for _, t := range resolver.Ready(result.Tasks) {
					tasks = append(tasks, fmt.Sprintf("%-12s %s", t.ID, t.Title))
				}
			case "waiting":
				for _, t := range resolver.Waiting(result.Tasks) {
					tasks = append(tasks, fmt.Sprintf("%-12s waiting_on=%v %s", t.ID, t.WaitingOn, t.Title))
				}
			case "blocked":
				for _, t := range resolver.Blocked(result.Tasks) {
					tasks = append(tasks, fmt.Sprintf("%-12s blocked_by=%v (%s) %s", t.ID, t.BlockedBy, t.BlockedByReason, t.Title))
				}
			}
			for _, line := range tasks {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newRunOneCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run-one <project>",
		Short: "Spawn exactly one ready task for a project and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			return runOne(cmd.Context(), app, args[0])
		},
	}
}

func newLogsCommand(configPath *string) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs [project]",
		Short: "Print (optionally follow) the most recently written scratch log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			project := ""
			if len(args) > 0 {
				project = args[0]
			}
			return tailLogs(app, project, follow)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow the log as it grows")
	return cmd
}

func newConfigCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			cfg := app.Cfg
			fmt.Printf("brain_dir: %s\n", cfg.BrainDir)
			fmt.Printf("api_url: %s\n", cfg.APIURL)
			fmt.Printf("host: %s\n", cfg.Host)
			fmt.Printf("port: %d\n", cfg.Port)
			fmt.Printf("enable_auth: %v\n", cfg.EnableAuth)
			fmt.Printf("max_concurrent: %d\n", cfg.MaxConcurrent)
			fmt.Printf("poll_interval_seconds: %d\n", cfg.PollIntervalSeconds)
			fmt.Printf("default_agent: %s\n", cfg.DefaultAgent)
			fmt.Printf("default_model: %s\n", cfg.DefaultModel)
			return nil
		},
	}
}

// tailLogs prints the most recently modified output_*.log under the state
// dir (spec §6 "Scratch files ... output_<project>_<task>.log"), optionally
// following it with fsnotify the way a "tail -f" would.
func tailLogs(app *App, project string, follow bool) error {
	pattern := filepath.Join(app.Cfg.StateDir(), "output_*.log")
	if project != "" {
		pattern = filepath.Join(app.Cfg.StateDir(), fmt.Sprintf("output_%s_*.log", project))
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no logs found matching %s", pattern)
	}

	latest := matches[0]
	latestMod := modTime(latest)
	for _, m := range matches[1:] {
		if t := modTime(m); t.After(latestMod) {
			latest, latestMod = m, t
		}
	}

	f, err := os.Open(latest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(os.Stdout, f); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start log watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(latest); err != nil {
		return fmt.Errorf("watch %s: %w", latest, err)
	}

	reader := bufio.NewReader(f)
	for event := range watcher.Events {
		if event.Op&fsnotify.Write == 0 {
			continue
		}
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				fmt.Print(line)
			}
			if err != nil {
				break
			}
		}
	}
	return nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// runOne spawns the single highest-priority ready task for project and
// blocks until its subprocess exits (spec §6 "run-one <project>").
func runOne(ctx context.Context, app *App, project string) error {
	result, err := app.Tasks.Classified(ctx, project)
	if err != nil {
		return err
	}
	next := resolver.Next(result.Tasks)
	if next == nil {
		fmt.Println("no ready task")
		return nil
	}

	runnerCmd := exec.Command(app.RunnerBinary, "--project", project, "--task", next.ID, "--once")
	runnerCmd.Stdout = os.Stdout
	runnerCmd.Stderr = os.Stderr
	if err := runnerCmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", next.ID, err)
	}
	return nil
}
