package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pyshare-dev/pyshare/internal/config"
	"github.com/pyshare-dev/pyshare/internal/lint"
	"github.com/pyshare-dev/pyshare/internal/share"
	"github.com/spf13/cobra"
)

const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitNoReferences = 2
	ExitNoInsertion  = 3
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, share.ErrNoRelevantReferences):
		return ExitNoReferences
	case errors.Is(err, share.ErrMissingInsertionPoint):
		return ExitNoInsertion
	default:
		return ExitFailure
	}
}

// settings is everything a command needs after config, env and flags are
// merged.
type settings struct {
	cfg     config.Config
	root    string
	workDir string
	logger  *slog.Logger
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	workingDir, err := resolveWorkingDirectory()
	if err != nil {
		return nil, err
	}

	v, err := config.New(workingDir)
	if err != nil {
		return nil, err
	}
	if err := bindFlagsToConfig(cmd, v); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	verbose, err := OptionalBoolFlag(cmd, verboseFlagName)
	if err != nil {
		return nil, err
	}
	noLint, err := OptionalBoolFlag(cmd, noLintFlagName)
	if err != nil {
		return nil, err
	}
	if noLint {
		cfg.Lint.Enabled = false
	}

	return &settings{
		cfg:     cfg,
		root:    resolveProjectRoot(cfg.Project.Root, workingDir),
		workDir: workingDir,
		logger:  config.NewLogger(cfg.Log, verbose, cmd.ErrOrStderr()),
	}, nil
}

func (s *settings) pipeline() *share.Pipeline {
	var linter lint.Runner = lint.Nop{}
	if s.cfg.Lint.Enabled {
		linter = lint.NewExecRunner(s.cfg.Lint.Commands, s.cfg.Lint.Timeout, s.logger)
	}
	return share.New(s.cfg, s.root, s.workDir, linter, s.logger)
}

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// resolveProjectRoot returns the configured root, else the git toplevel of
// workingDir, else workingDir itself.
func resolveProjectRoot(configured, workingDir string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		if filepath.IsAbs(configured) {
			return configured
		}
		return filepath.Join(workingDir, configured)
	}
	if repoRoot, err := ResolveGitRoot(workingDir); err == nil {
		return repoRoot
	}
	return workingDir
}

func ResolveGitRoot(workingDir string) (string, error) {
	out, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}
