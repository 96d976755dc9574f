package parser

// StatementKind represents the type of a top-level statement
type StatementKind int

const (
	StatementOther StatementKind = iota
	StatementImport
	StatementFromImport
	StatementFunction
	StatementClass
	StatementComment
)

// FutureModule is the module name recorded for `from __future__ import ...`.
const FutureModule = "__future__"

// Span is a half-open byte range [Start, End) into the module source.
type Span struct {
	Start int
	End   int
}

// CallSite captures a function invocation discovered inside a definition body.
type CallSite struct {
	Name      string
	Qualifier string
	Line      int
}

// ImportedName is one entry of a `from x import a as b` statement.
type ImportedName struct {
	Name  string
	Alias string
	Span  Span
}

// Local returns the name the import binds in the importing module.
func (n ImportedName) Local() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Import describes one module referenced by an import statement.
type Import struct {
	Module string
	Alias  string         // local binding for `import x.y as z` / `import x.y`
	Names  []ImportedName // populated for from-imports
}

// Definition is a top-level function, decorators included.
type Definition struct {
	Name   string
	Line   int
	Span   Span
	Source string
	Calls  []CallSite
}

// CallSet returns the bare names called inside the definition, in order of
// first occurrence.
func (d *Definition) CallSet() []string {
	if d == nil || len(d.Calls) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(d.Calls))
	out := make([]string, 0, len(d.Calls))
	for _, call := range d.Calls {
		if call.Qualifier != "" || call.Name == "" || seen[call.Name] {
			continue
		}
		seen[call.Name] = true
		out = append(out, call.Name)
	}
	return out
}

// Statement is one top-level statement of a module.
type Statement struct {
	Kind       StatementKind
	Line       int
	Span       Span
	Text       string
	Imports    []Import    // import / from-import statements
	Definition *Definition // function statements
}

// Attribute is an `object.name` reference anywhere in the module.
type Attribute struct {
	Object string
	Name   string
	Line   int
	Span   Span
}

// Identifier is a bare name reference anywhere in the module. Identifiers
// that name a binding site (import lists, keyword argument names, attribute
// members, definition names) are not recorded.
type Identifier struct {
	Name string
	Line int
	Span Span
}

// Module holds everything extracted from a single source file
type Module struct {
	Path        string
	Language    string
	Source      []byte
	Hash        string
	Statements  []Statement
	Attributes  []Attribute
	Identifiers []Identifier
}

// Definitions returns the module's top-level functions keyed by name, plus
// their declaration order. A later definition of the same name wins, as it
// does at runtime.
func (m *Module) Definitions() (map[string]*Definition, []string) {
	defs := make(map[string]*Definition)
	order := make([]string, 0)
	for i := range m.Statements {
		def := m.Statements[i].Definition
		if def == nil {
			continue
		}
		if _, ok := defs[def.Name]; !ok {
			order = append(order, def.Name)
		}
		defs[def.Name] = def
	}
	return defs, order
}

// ImportStatements returns the top-level import and from-import statements
// in source order.
func (m *Module) ImportStatements() []Statement {
	out := make([]Statement, 0)
	for _, stmt := range m.Statements {
		if stmt.Kind == StatementImport || stmt.Kind == StatementFromImport {
			out = append(out, stmt)
		}
	}
	return out
}
