package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pyshare-dev/pyshare/internal/fileutil"
	"github.com/pyshare-dev/pyshare/internal/share"
)

type ShareSummary struct {
	Mode         string     `json:"mode"`
	Target       string     `json:"target"`
	TargetHash   string     `json:"target_hash"`
	Output       string     `json:"output"`
	Policy       string     `json:"policy"`
	Imports      []string   `json:"imports"`
	Requested    []string   `json:"requested"`
	Inlined      []string   `json:"inlined"`
	Unsupported  []string   `json:"unsupported,omitempty"`
	Cycles       [][]string `json:"cycles,omitempty"`
	Written      bool       `json:"written"`
	Changed      bool       `json:"changed"`
	LintFailures []string   `json:"lint_failures,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
}

// NewShareSummary describes a plan, and the result of writing it when result
// is not nil.
func NewShareSummary(plan *share.Plan, result *share.Result, elapsed time.Duration) ShareSummary {
	summary := ShareSummary{
		Mode:        "dry-run",
		Target:      plan.TargetPath,
		TargetHash:  plan.Target.Hash,
		Output:      plan.OutputPath,
		Policy:      string(plan.Splice.Policy),
		Imports:     make([]string, 0, len(plan.Splice.References.Markers)),
		Requested:   plan.Splice.References.Requested(),
		Inlined:     plan.Splice.Inlined(),
		Unsupported: plan.Splice.References.Unsupported,
		DurationMS:  elapsed.Milliseconds(),
	}
	for _, marker := range plan.Splice.References.Markers {
		summary.Imports = append(summary.Imports, fmt.Sprintf("%s import at line %d", marker.Form, marker.Statement.Line))
	}
	for _, cycle := range plan.Splice.Cycles {
		summary.Cycles = append(summary.Cycles, []string(cycle))
	}
	if result != nil {
		summary.Mode = "share"
		summary.Written = true
		summary.Changed = result.Changed
		for _, outcome := range result.Lint {
			if outcome.Failed() {
				summary.LintFailures = append(summary.LintFailures, fmt.Sprintf("%s: %v", outcome.Command, outcome.Err))
			}
		}
	}
	return summary
}

func PrintShareSummary(w io.Writer, summary ShareSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	if !summary.Written {
		fmt.Fprintf(w, "Would write: %s\n", summary.Output)
		fmt.Fprintf(w, "policy: %s\n", summary.Policy)
		for _, imp := range summary.Imports {
			fmt.Fprintf(w, "replaces: %s\n", imp)
		}
		fmt.Fprintf(w, "inlined (%d): %s\n", len(summary.Inlined), SummarizeNames(summary.Inlined, 8))
		if len(summary.Unsupported) > 0 {
			fmt.Fprintf(w, "not inlined: %s\n", strings.Join(summary.Unsupported, ", "))
		}
		return nil
	}

	fmt.Fprintf(w, "Processed file written to: %s\n", summary.Output)
	return nil
}

func SummarizeNames(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(names[:max], ", "), len(names)-max)
}
