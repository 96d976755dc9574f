package splice

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pyshare-dev/pyshare/internal/graph"
	"github.com/pyshare-dev/pyshare/internal/parser"
)

// Policy selects where inlined definitions are placed.
type Policy string

const (
	PolicyAuto   Policy = "auto"
	PolicyMarker Policy = "marker"
	PolicyImport Policy = "import"
)

// ParsePolicy validates a policy name.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyMarker:
		return PolicyMarker, nil
	case PolicyImport:
		return PolicyImport, nil
	}
	return "", fmt.Errorf("unsupported splice policy %q (supported: auto, marker, import)", value)
}

// ErrMissingInsertionPoint is returned when the marker policy cannot find
// enough marker lines in the target.
var ErrMissingInsertionPoint = errors.New("insertion point not found")

// blankLinesBetweenDefs separates inlined top-level definitions.
const blankLinesBetweenDefs = 2

// Options configures a splice.
type Options struct {
	UtilsModule      string
	Functions        []string // inlinable functions, in resolution order
	Policy           Policy
	Marker           string
	MarkerOccurrence int
}

// InsertionPoint is where the marker policy inserts definitions.
type InsertionPoint struct {
	Offset int
	Line   int
}

// Group is one requested function and the definitions its resolution emitted.
type Group struct {
	Function    string
	Definitions []*parser.Definition
}

// Plan is the complete, not yet applied transformation of a target module.
type Plan struct {
	Policy      Policy
	References  *References
	Groups      []Group
	Definitions []*parser.Definition
	Insertion   *InsertionPoint
	Graph       *graph.Graph
	Cycles      []graph.Cycle
	Edits       []Edit
}

// Inlined returns the names of every emitted definition in output order.
func (p *Plan) Inlined() []string {
	out := make([]string, 0, len(p.Definitions))
	for _, def := range p.Definitions {
		out = append(out, def.Name)
	}
	return out
}

// Build scans target for references to the utilities module and computes the
// edits that inline the referenced functions from utils. It does not check
// whether anything was referenced; callers decide what an empty plan means.
func Build(target, utils *parser.Module, opts Options) (*Plan, error) {
	if opts.Marker == "" {
		opts.Marker = "# %%"
	}
	if opts.MarkerOccurrence < 1 {
		opts.MarkerOccurrence = 2
	}

	refs := Scan(target, opts.UtilsModule, opts.Functions)
	policy := opts.Policy
	if policy == "" || policy == PolicyAuto {
		policy = PolicyImport
		if refs.HasModuleImport() {
			policy = PolicyMarker
		}
	}

	plan := &Plan{Policy: policy, References: refs, Graph: graph.BuildFromModule(utils)}
	if edit, ok := FutureImportEdit(target, utils); ok {
		plan.Edits = append(plan.Edits, edit)
	}

	resolver := plan.Graph.NewResolver()
	requested := refs.Requested()
	inlined := make(map[string]bool, len(requested))
	for _, name := range requested {
		inlined[name] = true
	}

	perStatement := make(map[parser.Span][]*parser.Definition)

	switch policy {
	case PolicyMarker:
		point, err := FindInsertionPoint(target.Source, opts.Marker, opts.MarkerOccurrence)
		if err != nil {
			return nil, err
		}
		plan.Insertion = &point
		for _, name := range requested {
			plan.addGroup(name, resolver.Resolve(name))
		}
		if len(plan.Definitions) > 0 {
			plan.Edits = append(plan.Edits, Edit{
				Span:   parser.Span{Start: point.Offset, End: point.Offset},
				Text:   renderDefinitions(plan.Definitions) + definitionSeparator(),
				Reason: "insert definitions",
			})
		}
	case PolicyImport:
		for _, marker := range refs.Markers {
			for _, name := range refs.requestedBy(marker) {
				resolved := resolver.Resolve(name)
				plan.addGroup(name, resolved)
				perStatement[marker.Statement.Span] = append(perStatement[marker.Statement.Span], resolved...)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported splice policy %q", policy)
	}
	plan.Cycles = resolver.Cycles()

	// Dependencies pulled in by resolution are defined locally too.
	for _, def := range plan.Definitions {
		inlined[def.Name] = true
	}

	plan.Edits = append(plan.Edits, importEdits(target.Source, refs.Markers, ImportBlock(utils), opts.UtilsModule, inlined, perStatement)...)
	plan.Edits = append(plan.Edits, CallSiteEdits(refs, inlined)...)
	return plan, nil
}

// Render applies the plan to the target source.
func (p *Plan) Render(target *parser.Module) ([]byte, error) {
	return Apply(target.Source, p.Edits)
}

func (p *Plan) addGroup(name string, defs []*parser.Definition) {
	p.Groups = append(p.Groups, Group{Function: name, Definitions: defs})
	p.Definitions = append(p.Definitions, defs...)
}

// FindInsertionPoint returns the start of the occurrence-th line whose trimmed
// text equals marker.
func FindInsertionPoint(source []byte, marker string, occurrence int) (InsertionPoint, error) {
	marker = strings.TrimSpace(marker)

	offset, line, found := 0, 0, 0
	for offset < len(source) {
		line++
		end := len(source)
		if idx := bytes.IndexByte(source[offset:], '\n'); idx != -1 {
			end = offset + idx
		}
		if strings.TrimSpace(string(source[offset:end])) == marker {
			found++
			if found == occurrence {
				return InsertionPoint{Offset: offset, Line: line}, nil
			}
		}
		offset = end + 1
	}
	return InsertionPoint{}, fmt.Errorf("%w: found %d of %d %q marker lines", ErrMissingInsertionPoint, found, occurrence, marker)
}

// CallSiteEdits rewrites `alias.fn` and selective-import aliases of inlined
// functions to the bare function name.
func CallSiteEdits(refs *References, inlined map[string]bool) []Edit {
	edits := make([]Edit, 0, len(refs.Uses))
	for _, use := range refs.Uses {
		if !inlined[use.Function] || use.Text == use.Function {
			continue
		}
		edits = append(edits, Edit{Span: use.Span, Text: use.Function, Reason: "rewrite call site"})
	}
	return edits
}

func renderDefinitions(defs []*parser.Definition) string {
	sources := make([]string, 0, len(defs))
	for _, def := range defs {
		sources = append(sources, strings.TrimRight(def.Source, " \t\r\n"))
	}
	return strings.Join(sources, definitionSeparator())
}

func definitionSeparator() string {
	return strings.Repeat("\n", blankLinesBetweenDefs+1)
}
