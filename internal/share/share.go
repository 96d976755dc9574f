// Package share turns an analysis script into a standalone copy by inlining
// the helper functions it uses from the shared utilities module.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pyshare-dev/pyshare/internal/config"
	"github.com/pyshare-dev/pyshare/internal/fileutil"
	"github.com/pyshare-dev/pyshare/internal/languages"
	"github.com/pyshare-dev/pyshare/internal/lint"
	"github.com/pyshare-dev/pyshare/internal/parser"
	"github.com/pyshare-dev/pyshare/internal/splice"
)

var (
	// ErrNoRelevantReferences means the target uses none of the inlinable
	// functions. Nothing is written.
	ErrNoRelevantReferences = errors.New("no relevant utils functions referenced")
	// ErrMissingInsertionPoint means the marker policy found too few marker
	// lines. Nothing is written.
	ErrMissingInsertionPoint = splice.ErrMissingInsertionPoint
)

// outputExt is the extension of every standalone copy, whatever the target's.
const outputExt = ".py"

// Pipeline runs the share transformation for one configuration.
type Pipeline struct {
	cfg      config.Config
	root     string
	workDir  string
	registry *parser.Registry
	linter   lint.Runner
	logger   *slog.Logger
}

// New returns a pipeline resolving a relative utils path against root and a
// relative output dir against workDir. A nil linter skips the lint pass; a nil
// logger uses slog.Default.
func New(cfg config.Config, root, workDir string, linter lint.Runner, logger *slog.Logger) *Pipeline {
	if linter == nil {
		linter = lint.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		root:     root,
		workDir:  workDir,
		registry: languages.NewDefaultRegistry(),
		linter:   linter,
		logger:   logger,
	}
}

// Plan is a computed but unwritten transformation.
type Plan struct {
	TargetPath string
	OutputPath string
	Functions  []string
	Target     *parser.Module
	Utils      *parser.Module
	Splice     *splice.Plan
	Generated  []byte
}

// Result is what Run wrote.
type Result struct {
	*Plan
	Changed bool
	Lint    []lint.Outcome
}

// DependencyRow describes one requested function and what its resolution
// emitted, dependencies first.
type DependencyRow struct {
	Function string   `json:"function"`
	Resolved []string `json:"resolved"`
	Calls    []string `json:"calls"`
	CalledBy []string `json:"called_by"`
}

// Dependencies lists the resolution groups of the plan.
func (p *Plan) Dependencies() []DependencyRow {
	rows := make([]DependencyRow, 0, len(p.Splice.Groups))
	for _, group := range p.Splice.Groups {
		resolved := make([]string, 0, len(group.Definitions))
		for _, def := range group.Definitions {
			resolved = append(resolved, def.Name)
		}
		rows = append(rows, DependencyRow{
			Function: group.Function,
			Resolved: resolved,
			Calls:    p.Splice.Graph.Callees(group.Function),
			CalledBy: p.Splice.Graph.Callers(group.Function),
		})
	}
	return rows
}

// Plan parses the target and the utilities module and computes the
// standalone copy without writing anything.
func (p *Pipeline) Plan(targetPath string) (*Plan, error) {
	target, err := p.registry.ParseFile(targetPath)
	if err != nil {
		return nil, err
	}

	module := p.cfg.Utils.Module
	functions := fileutil.DedupeStrings(p.cfg.Utils.Functions)
	if len(functions) > 0 {
		if refs := splice.Scan(target, module, functions); refs.Empty() {
			return nil, p.noReferences(targetPath, refs)
		}
	}

	utilsPath := p.resolve(p.cfg.Utils.Path)
	utils, err := p.registry.ParseFile(utilsPath)
	if err != nil {
		return nil, fmt.Errorf("utils module: %w", err)
	}
	if len(functions) == 0 {
		functions = PublicFunctions(utils)
	} else if err := checkDefined(utils, functions); err != nil {
		return nil, err
	}

	policy, err := splice.ParsePolicy(p.cfg.Splice.Policy)
	if err != nil {
		return nil, err
	}

	plan, err := splice.Build(target, utils, splice.Options{
		UtilsModule:      module,
		Functions:        functions,
		Policy:           policy,
		Marker:           p.cfg.Splice.Marker,
		MarkerOccurrence: p.cfg.Splice.MarkerOccurrence,
	})
	if err != nil {
		if errors.Is(err, splice.ErrMissingInsertionPoint) {
			return nil, fmt.Errorf("%s: %w", targetPath, err)
		}
		return nil, fmt.Errorf("failed to plan %s: %w", targetPath, err)
	}
	if plan.References.Empty() {
		return nil, p.noReferences(targetPath, plan.References)
	}

	generated, err := plan.Render(target)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", targetPath, err)
	}

	outputPath, err := p.outputPath(targetPath)
	if err != nil {
		return nil, err
	}

	for _, ref := range plan.References.Unsupported {
		p.logger.Warn("reference to utils name that is not inlined", "target", targetPath, "reference", ref)
	}
	for _, cycle := range plan.Cycles {
		p.logger.Warn("mutually recursive utils functions", "cycle", strings.Join(cycle, " -> "))
	}
	p.logger.Info("planned share",
		"target", targetPath,
		"policy", plan.Policy,
		"inlined", plan.Inlined(),
		"edits", len(plan.Edits),
	)

	return &Plan{
		TargetPath: targetPath,
		OutputPath: outputPath,
		Functions:  functions,
		Target:     target,
		Utils:      utils,
		Splice:     plan,
		Generated:  []byte(fileutil.EnsureTrailingNewline(string(generated))),
	}, nil
}

// Run plans the target, writes the standalone copy and lints it. Lint
// failures are logged, not returned.
func (p *Pipeline) Run(ctx context.Context, targetPath string) (*Result, error) {
	plan, err := p.Plan(targetPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changed, err := fileutil.WriteIfChangedTracked(plan.OutputPath, plan.Generated)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", plan.OutputPath, err)
	}
	p.logger.Info("wrote standalone copy", "path", plan.OutputPath, "changed", changed)

	return &Result{
		Plan:    plan,
		Changed: changed,
		Lint:    p.linter.Run(ctx, plan.OutputPath),
	}, nil
}

// PublicFunctions returns the module's top-level functions whose names do not
// start with an underscore, in source order.
func PublicFunctions(module *parser.Module) []string {
	_, order := module.Definitions()
	out := make([]string, 0, len(order))
	for _, name := range order {
		if !strings.HasPrefix(name, "_") {
			out = append(out, name)
		}
	}
	return out
}

func checkDefined(utils *parser.Module, functions []string) error {
	defs, _ := utils.Definitions()
	missing := make([]string, 0)
	for _, fn := range functions {
		if _, ok := defs[fn]; !ok {
			missing = append(missing, fn)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("utils module %s does not define %s", utils.Path, strings.Join(missing, ", "))
	}
	return nil
}

func (p *Pipeline) noReferences(targetPath string, refs *splice.References) error {
	if len(refs.Markers) == 0 {
		p.logger.Info("target does not import the utils module", "target", targetPath, "module", p.cfg.Utils.Module)
	}
	for _, ref := range refs.Unsupported {
		p.logger.Warn("reference to utils name that is not inlined", "target", targetPath, "reference", ref)
	}
	return fmt.Errorf("%w in %s", ErrNoRelevantReferences, targetPath)
}

func (p *Pipeline) resolve(path string) string {
	return resolveAgainst(p.root, path)
}

func resolveAgainst(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// outputPath is <output dir>/<stem><suffix>.py. It never points at the
// target itself.
func (p *Pipeline) outputPath(targetPath string) (string, error) {
	base := filepath.Base(targetPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + p.cfg.Output.Suffix + outputExt
	out := filepath.Join(resolveAgainst(p.workDir, p.cfg.Output.Dir), name)

	absOut, err := filepath.Abs(out)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}
	if absOut == absTarget {
		return "", fmt.Errorf("output path %s would overwrite the target", out)
	}
	if info, err := os.Stat(absOut); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path %s is a directory", out)
	}
	return out, nil
}
