package splice

import (
	"github.com/pyshare-dev/pyshare/internal/parser"
)

// Use is one reference in the target to an inlinable function, through either
// `alias.fn` or a selectively imported name.
type Use struct {
	Function string
	Text     string // the referencing text, e.g. "tu.ts_plot" or "tp"
	Form     Form
	Line     int
	Span     parser.Span
}

// References is what a target uses from the utilities module.
type References struct {
	Markers     []MarkerImport
	Uses        []Use
	Unsupported []string // `alias.name` references to names that cannot be inlined

	functions []string
	byMarker  map[parser.Span][]string
}

// Scan finds the marker imports of utilsModule in target and every reference
// to one of functions made through them.
func Scan(target *parser.Module, utilsModule string, functions []string) *References {
	supported := make(map[string]bool, len(functions))
	for _, fn := range functions {
		supported[fn] = true
	}

	refs := &References{
		Markers:   FindMarkerImports(target, utilsModule),
		Uses:      make([]Use, 0),
		functions: functions,
		byMarker:  make(map[parser.Span][]string),
	}

	// module alias -> marker statement, local name -> function
	aliases := make(map[string]parser.Span)
	selective := make(map[string]string)
	unsupported := make(map[string]bool)
	for _, marker := range refs.Markers {
		span := marker.Statement.Span
		switch marker.Form {
		case FormModule:
			if _, ok := aliases[marker.Alias]; !ok {
				aliases[marker.Alias] = span
			}
		case FormSelective:
			for _, name := range marker.Names {
				if !supported[name.Name] {
					continue
				}
				selective[name.Local()] = name.Name
				refs.addRequest(span, name.Name)
			}
		}
	}

	for _, attr := range target.Attributes {
		span, ok := aliases[attr.Object]
		if !ok {
			continue
		}
		if !supported[attr.Name] {
			ref := attr.Object + "." + attr.Name
			if !unsupported[ref] {
				unsupported[ref] = true
				refs.Unsupported = append(refs.Unsupported, ref)
			}
			continue
		}
		refs.Uses = append(refs.Uses, Use{
			Function: attr.Name,
			Text:     attr.Object + "." + attr.Name,
			Form:     FormModule,
			Line:     attr.Line,
			Span:     attr.Span,
		})
		refs.addRequest(span, attr.Name)
	}

	for _, ident := range target.Identifiers {
		fn, ok := selective[ident.Name]
		if !ok {
			continue
		}
		refs.Uses = append(refs.Uses, Use{
			Function: fn,
			Text:     ident.Name,
			Form:     FormSelective,
			Line:     ident.Line,
			Span:     ident.Span,
		})
	}

	return refs
}

// Empty reports whether the target references no inlinable function.
func (r *References) Empty() bool {
	return len(r.Requested()) == 0
}

// HasModuleImport reports whether any marker is a whole-module import.
func (r *References) HasModuleImport() bool {
	for _, marker := range r.Markers {
		if marker.Form == FormModule {
			return true
		}
	}
	return false
}

// Requested returns the referenced inlinable functions in configured order.
func (r *References) Requested() []string {
	wanted := make(map[string]bool)
	for _, names := range r.byMarker {
		for _, name := range names {
			wanted[name] = true
		}
	}
	out := make([]string, 0, len(wanted))
	for _, fn := range r.functions {
		if wanted[fn] {
			out = append(out, fn)
			delete(wanted, fn)
		}
	}
	return out
}

// requestedBy returns the functions a single marker statement brings in:
// selective imports in statement order, module imports in configured order.
func (r *References) requestedBy(marker MarkerImport) []string {
	names := r.byMarker[marker.Statement.Span]
	if marker.Form == FormSelective {
		return names
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	out := make([]string, 0, len(names))
	for _, fn := range r.functions {
		if wanted[fn] {
			out = append(out, fn)
		}
	}
	return out
}

func (r *References) addRequest(span parser.Span, fn string) {
	for _, existing := range r.byMarker[span] {
		if existing == fn {
			return
		}
	}
	r.byMarker[span] = append(r.byMarker[span], fn)
}
