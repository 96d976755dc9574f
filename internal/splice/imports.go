package splice

import (
	"strings"

	"github.com/pyshare-dev/pyshare/internal/parser"
)

// Form distinguishes the two ways a target can import the utilities module.
type Form int

const (
	// FormModule is `import tm.utils as tu` (or `import tm.utils`).
	FormModule Form = iota
	// FormSelective is `from tm.utils import a, b as c`.
	FormSelective
)

func (f Form) String() string {
	if f == FormSelective {
		return "selective"
	}
	return "module"
}

// MarkerImport is a top-level import statement of the target that refers to
// the utilities module.
type MarkerImport struct {
	Statement parser.Statement
	Form      Form
	Alias     string                // FormModule: local binding of the module
	Names     []parser.ImportedName // FormSelective: imported names
	Others    []parser.Import       // imports of other modules sharing the statement
}

// FindMarkerImports returns the target's top-level statements importing
// utilsModule, in source order.
func FindMarkerImports(target *parser.Module, utilsModule string) []MarkerImport {
	out := make([]MarkerImport, 0)
	for _, stmt := range target.ImportStatements() {
		switch stmt.Kind {
		case parser.StatementImport:
			var marker *MarkerImport
			others := make([]parser.Import, 0)
			for _, imp := range stmt.Imports {
				if imp.Module == utilsModule && marker == nil {
					marker = &MarkerImport{Statement: stmt, Form: FormModule, Alias: imp.Alias}
					continue
				}
				others = append(others, imp)
			}
			if marker != nil {
				marker.Others = others
				out = append(out, *marker)
			}
		case parser.StatementFromImport:
			for _, imp := range stmt.Imports {
				if imp.Module == utilsModule {
					out = append(out, MarkerImport{Statement: stmt, Form: FormSelective, Names: imp.Names})
				}
			}
		}
	}
	return out
}

// ImportBlock returns the utilities module's own top-level import statements,
// verbatim and in source order, one per line. `__future__` imports are left
// to FutureImportEdit since they must open the file.
func ImportBlock(utils *parser.Module) string {
	stmts := utils.ImportStatements()
	lines := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if isFutureImport(stmt) {
			continue
		}
		lines = append(lines, strings.TrimSpace(stmt.Text))
	}
	return strings.Join(lines, "\n")
}

// FutureImportEdit hoists the utilities module's `__future__` imports that the
// target lacks to the top of the target, after its docstring, leading
// comments and its own `__future__` imports. It returns false when there is
// nothing to add.
func FutureImportEdit(target, utils *parser.Module) (Edit, bool) {
	present := make(map[string]bool)
	for _, stmt := range target.ImportStatements() {
		if isFutureImport(stmt) {
			present[strings.TrimSpace(stmt.Text)] = true
		}
	}

	lines := make([]string, 0)
	for _, stmt := range utils.ImportStatements() {
		text := strings.TrimSpace(stmt.Text)
		if !isFutureImport(stmt) || present[text] {
			continue
		}
		present[text] = true
		lines = append(lines, text)
	}
	if len(lines) == 0 {
		return Edit{}, false
	}

	offset := len(target.Source)
	docstring := true
	for _, stmt := range target.Statements {
		if stmt.Kind == parser.StatementComment || isFutureImport(stmt) {
			continue
		}
		if docstring && isDocstring(stmt) {
			docstring = false
			continue
		}
		offset = stmt.Span.Start
		break
	}

	text := strings.Join(lines, "\n") + "\n"
	if offset == len(target.Source) && offset > 0 && target.Source[offset-1] != '\n' {
		text = "\n" + text
	}
	return Edit{Span: parser.Span{Start: offset, End: offset}, Text: text, Reason: "hoist future imports"}, true
}

func isFutureImport(stmt parser.Statement) bool {
	return stmt.Kind == parser.StatementFromImport && len(stmt.Imports) == 1 && stmt.Imports[0].Module == parser.FutureModule
}

func isDocstring(stmt parser.Statement) bool {
	if stmt.Kind != parser.StatementOther {
		return false
	}
	text := strings.TrimLeft(stmt.Text, "rRuUbB")
	return strings.HasPrefix(text, `"`) || strings.HasPrefix(text, "'")
}

// residualImport renders what must survive of a marker statement: imports of
// other modules, and selectively imported names that are not inlined.
func residualImport(marker MarkerImport, utilsModule string, inlined map[string]bool) string {
	switch marker.Form {
	case FormModule:
		if len(marker.Others) == 0 {
			return ""
		}
		parts := make([]string, 0, len(marker.Others))
		for _, imp := range marker.Others {
			if imp.Alias != "" && imp.Alias != imp.Module {
				parts = append(parts, imp.Module+" as "+imp.Alias)
				continue
			}
			parts = append(parts, imp.Module)
		}
		return "import " + strings.Join(parts, ", ")
	case FormSelective:
		parts := make([]string, 0)
		for _, name := range marker.Names {
			if inlined[name.Name] {
				continue
			}
			if name.Alias != "" {
				parts = append(parts, name.Name+" as "+name.Alias)
				continue
			}
			parts = append(parts, name.Name)
		}
		if len(parts) == 0 {
			return ""
		}
		return "from " + utilsModule + " import " + strings.Join(parts, ", ")
	}
	return ""
}

// RewriteImports returns the edits that replace the marker imports: the first
// one becomes the utilities module's import block, later ones disappear.
// Selectively imported names outside inlined are kept in a residual import.
// A target without marker imports yields no edits.
func RewriteImports(target, utils *parser.Module, utilsModule string, inlined map[string]bool) []Edit {
	markers := FindMarkerImports(target, utilsModule)
	return importEdits(target.Source, markers, ImportBlock(utils), utilsModule, inlined, nil)
}

// importEdits rewrites every marker statement once. Definitions listed for a
// statement in defs are emitted right after its rewritten imports.
func importEdits(source []byte, markers []MarkerImport, block, utilsModule string, inlined map[string]bool, defs map[parser.Span][]*parser.Definition) []Edit {
	edits := make([]Edit, 0, len(markers))
	seen := make(map[parser.Span]bool, len(markers))
	first := true
	for _, marker := range markers {
		span := marker.Statement.Span
		if seen[span] {
			continue
		}
		seen[span] = true

		parts := make([]string, 0, 2)
		if first && block != "" {
			parts = append(parts, block)
		}
		first = false
		if residual := residualImport(marker, utilsModule, inlined); residual != "" {
			parts = append(parts, residual)
		}

		text := strings.Join(parts, "\n")
		if statementDefs := defs[span]; len(statementDefs) > 0 {
			if text != "" {
				text += definitionSeparator()
			}
			text += renderDefinitions(statementDefs)
			if pad := blankLinesBetweenDefs - blankLinesAfter(source, span.End); pad > 0 {
				text += strings.Repeat("\n", pad)
			}
		}
		edits = append(edits, statementEdit(source, span, text, "rewrite import"))
	}
	return edits
}

// statementEdit replaces a statement. An empty replacement also swallows the
// line terminator so no blank line is left behind.
func statementEdit(source []byte, span parser.Span, text, reason string) Edit {
	if text == "" && span.End < len(source) && source[span.End] == '\n' {
		span.End++
	}
	return Edit{Span: span, Text: text, Reason: reason}
}

// blankLinesAfter counts the empty lines following the line that ends at
// offset. End of file counts as enough separation.
func blankLinesAfter(source []byte, offset int) int {
	if offset >= len(source) || source[offset] != '\n' {
		return 0
	}
	n := 0
	for i := offset + 1; i < len(source); i++ {
		if source[i] != '\n' {
			return n
		}
		n++
	}
	return blankLinesBetweenDefs
}
