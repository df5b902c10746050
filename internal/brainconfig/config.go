// Package brainconfig loads runner configuration from a YAML file overlaid
// with environment variables, following the precedence used by the teacher's
// internal/config loader: defaults, then file, then environment.
package brainconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration shared by the CLI, runner, and
// HTTP server binaries.
type Config struct {
	// BrainDir is the root of the task/knowledge store (BRAIN_DIR, default ~/.brain).
	BrainDir string `yaml:"brain_dir"`
	// APIURL is the base URL clients use to reach the HTTP server (BRAIN_API_URL).
	APIURL string `yaml:"api_url"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`

	// EnableAuth toggles OAuth bearer enforcement on the /api/v1 and /mcp routes.
	EnableAuth bool `yaml:"enable_auth"`

	// MaxConcurrent is the default per-project supervisor concurrency (slots).
	MaxConcurrent int `yaml:"max_concurrent"`
	// PollIntervalSeconds is the supervisor's poll cadence, in seconds.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// DefaultWorkDir is the fallback work directory when a task's workdir
	// chain resolves to nothing on disk (spec §4.2 step 4).
	DefaultWorkDir string `yaml:"default_work_dir"`

	// DefaultAgent and DefaultModel are used when a task omits per-task overrides.
	DefaultAgent string `yaml:"default_agent"`
	DefaultModel string `yaml:"default_model"`

	// MaxConsecutiveSpawnFailures before a task is marked blocked (spec §4.5 step 3).
	MaxConsecutiveSpawnFailures int `yaml:"max_consecutive_spawn_failures"`
}

// Default returns the built-in defaults, prior to file/env overlay.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		BrainDir:                    filepath.Join(home, ".brain"),
		APIURL:                      "http://localhost:3333",
		Host:                        "localhost",
		Port:                        3333,
		EnableAuth:                  false,
		MaxConcurrent:               2,
		PollIntervalSeconds:         5,
		DefaultWorkDir:              home,
		DefaultAgent:                "claude_code",
		DefaultModel:                "",
		MaxConsecutiveSpawnFailures: 1,
	}
}

// Load reads path (if it exists) over the defaults, then applies environment
// variable overrides, mirroring internal/config/loader.go's layering.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, yerr)
			}
		case os.IsNotExist(err):
			// Absent config file is not an error; defaults stand.
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BRAIN_DIR"); v != "" {
		cfg.BrainDir = v
	}
	if v := os.Getenv("BRAIN_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("BRAIN_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("BRAIN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("ENABLE_AUTH"); v != "" {
		cfg.EnableAuth = parseBool(v)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// StateDir returns <BrainDir>/state, where runner state files, PID files,
// and scratch prompt/log files live (spec §6 "Persisted state").
func (c Config) StateDir() string {
	return filepath.Join(c.BrainDir, "state")
}

// DBPath returns the shared SQLite database path for OAuth entities.
func (c Config) DBPath() string {
	return filepath.Join(c.BrainDir, "brain.db")
}

// ProjectsDir returns <BrainDir>/projects.
func (c Config) ProjectsDir() string {
	return filepath.Join(c.BrainDir, "projects")
}
