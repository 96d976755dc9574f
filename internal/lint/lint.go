// Package lint runs the external lint and format commands on generated files.
package lint

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lints a generated file. Failures are reported in the outcomes, never
// as an error: a lint pass is best effort.
type Runner interface {
	Run(ctx context.Context, path string) []Outcome
}

// Outcome is the result of one lint command.
type Outcome struct {
	Command  string
	Output   string
	Duration time.Duration
	Err      error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// ExecRunner runs each command as a subprocess with the target path appended
// as the last argument.
type ExecRunner struct {
	commands [][]string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewExecRunner builds a runner from shell-like command lines, split on
// whitespace. A zero timeout disables the per-command limit.
func NewExecRunner(commands []string, timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	argvs := make([][]string, 0, len(commands))
	for _, command := range commands {
		if fields := strings.Fields(command); len(fields) > 0 {
			argvs = append(argvs, fields)
		}
	}
	return &ExecRunner{commands: argvs, timeout: timeout, logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, path string) []Outcome {
	outcomes := make([]Outcome, 0, len(r.commands))
	for _, argv := range r.commands {
		outcome := r.runOne(ctx, argv, path)
		if outcome.Failed() {
			r.logger.Warn("lint command failed",
				"command", outcome.Command,
				"path", path,
				"error", outcome.Err,
				"output", strings.TrimSpace(outcome.Output),
			)
		} else {
			r.logger.Debug("lint command finished", "command", outcome.Command, "duration", outcome.Duration)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (r *ExecRunner) runOne(ctx context.Context, argv []string, path string) Outcome {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(append([]string{}, argv[1:]...), path)
	cmd := exec.CommandContext(ctx, argv[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	return Outcome{
		Command:  strings.Join(argv, " "),
		Output:   stdout.String() + stderr.String(),
		Duration: time.Since(start),
		Err:      err,
	}
}

// Nop skips linting.
type Nop struct{}

func (Nop) Run(context.Context, string) []Outcome {
	return nil
}
