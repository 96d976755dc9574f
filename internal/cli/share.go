package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/pyshare-dev/pyshare/internal/share"
	"github.com/spf13/cobra"
)

func RunShare(cmd *cobra.Command, args []string) error {
	start := time.Now()
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	dryRun, err := OptionalBoolFlag(cmd, dryRunFlagName)
	if err != nil {
		return err
	}
	showDiff, err := OptionalBoolFlag(cmd, diffFlagName)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, jsonFlagName)
	if err != nil {
		return err
	}

	pipeline := s.pipeline()
	target := args[0]

	var (
		plan   *share.Plan
		result *share.Result
	)
	if dryRun {
		plan, err = pipeline.Plan(target)
	} else {
		result, err = pipeline.Run(cmd.Context(), target)
		if result != nil {
			plan = result.Plan
		}
	}
	if err != nil {
		s.logger.Error("share failed", "target", target, "error", err)
		return err
	}

	out := cmd.OutOrStdout()
	if showDiff && !asJSON {
		if err := writeDiff(out, plan); err != nil {
			return err
		}
	}

	summary := NewShareSummary(plan, result, time.Since(start))
	if asJSON {
		return PrintShareSummary(out, summary, true)
	}
	return PrintShareSummary(out, summary, false)
}

func writeDiff(w io.Writer, plan *share.Plan) error {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(plan.Target.Source)),
		B:        difflib.SplitLines(string(plan.Generated)),
		FromFile: plan.TargetPath,
		ToFile:   plan.OutputPath,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", plan.TargetPath, err)
	}
	_, err = io.WriteString(w, text)
	return err
}
