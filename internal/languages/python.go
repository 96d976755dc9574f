package languages

import (
	"context"
	"fmt"
	"strings"

	"github.com/pyshare-dev/pyshare/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser implements parsing for Python source files
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

func (p *PythonParser) Language() string {
	return "python"
}

func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyw"}
}

func (p *PythonParser) Parse(filename string, content []byte) (*parser.Module, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, fmt.Errorf("syntax error near line %d", line)
	}

	result := &parser.Module{
		Path:        filename,
		Language:    "python",
		Source:      content,
		Statements:  make([]parser.Statement, 0, root.NamedChildCount()),
		Attributes:  make([]parser.Attribute, 0),
		Identifiers: make([]parser.Identifier, 0),
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		result.Statements = append(result.Statements, p.extractStatement(child, content))
	}
	p.collectReferences(root, content, result, nil)

	return result, nil
}

func (p *PythonParser) extractStatement(node *sitter.Node, content []byte) parser.Statement {
	stmt := parser.Statement{
		Kind: parser.StatementOther,
		Line: int(node.StartPoint().Row) + 1,
		Span: nodeSpan(node),
		Text: node.Content(content),
	}

	switch node.Type() {
	case "import_statement":
		stmt.Kind = parser.StatementImport
		stmt.Imports = p.extractImport(node, content)
	case "import_from_statement", "future_import_statement":
		stmt.Kind = parser.StatementFromImport
		stmt.Imports = p.extractFromImport(node, content)
	case "function_definition":
		stmt.Kind = parser.StatementFunction
		stmt.Definition = p.extractFunction(node, node, content)
	case "class_definition":
		stmt.Kind = parser.StatementClass
	case "comment":
		stmt.Kind = parser.StatementComment
	case "decorated_definition":
		// Decorators belong to the definition they wrap.
		definition := node.ChildByFieldName("definition")
		if definition == nil {
			break
		}
		switch definition.Type() {
		case "function_definition":
			stmt.Kind = parser.StatementFunction
			stmt.Definition = p.extractFunction(node, definition, content)
		case "class_definition":
			stmt.Kind = parser.StatementClass
		}
	}

	return stmt
}

// extractFunction builds a definition from outer (the statement, decorators
// included) and fn (the function_definition node itself).
func (p *PythonParser) extractFunction(outer, fn *sitter.Node, content []byte) *parser.Definition {
	nameNode := fn.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	calls := make([]parser.CallSite, 0)
	p.collectCalls(outer, content, &calls)

	return &parser.Definition{
		Name:   nameNode.Content(content),
		Line:   int(outer.StartPoint().Row) + 1,
		Span:   nodeSpan(outer),
		Source: outer.Content(content),
		Calls:  calls,
	}
}

func (p *PythonParser) extractImport(node *sitter.Node, content []byte) []parser.Import {
	imports := make([]parser.Import, 0)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			module := strings.TrimSpace(child.Content(content))
			if module != "" {
				imports = append(imports, parser.Import{Module: module, Alias: module})
			}
		case "aliased_import":
			module, alias := parsePythonAliasedImport(child, content)
			if module != "" {
				imports = append(imports, parser.Import{Module: module, Alias: alias})
			}
		}
	}
	return imports
}

func (p *PythonParser) extractFromImport(node *sitter.Node, content []byte) []parser.Import {
	moduleName := parser.FutureModule
	if node.Type() != "future_import_statement" {
		moduleNode := node.ChildByFieldName("module_name")
		if moduleNode == nil {
			return nil
		}
		moduleName = strings.TrimSpace(moduleNode.Content(content))
	}
	if moduleName == "" {
		return nil
	}

	imp := parser.Import{Module: moduleName, Names: make([]parser.ImportedName, 0)}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "aliased_import":
			importedName, aliasName := parsePythonAliasedImport(child, content)
			if importedName != "" {
				imp.Names = append(imp.Names, parser.ImportedName{
					Name:  importedName,
					Alias: aliasName,
					Span:  nodeSpan(child),
				})
			}
		case "dotted_name", "identifier":
			importedName := strings.TrimSpace(child.Content(content))
			if importedName != "" {
				imp.Names = append(imp.Names, parser.ImportedName{
					Name: importedName,
					Span: nodeSpan(child),
				})
			}
		}
	}

	return []parser.Import{imp}
}

func (p *PythonParser) collectCalls(node *sitter.Node, content []byte, calls *[]parser.CallSite) {
	if node == nil {
		return
	}

	if node.Type() == "call" {
		callSite := p.extractCallSite(node, content)
		if callSite.Name != "" {
			*calls = append(*calls, callSite)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.collectCalls(node.Child(i), content, calls)
	}
}

func (p *PythonParser) extractCallSite(callNode *sitter.Node, content []byte) parser.CallSite {
	name, qualifier := p.extractCallName(callNode.ChildByFieldName("function"), content)
	return parser.CallSite{
		Name:      name,
		Qualifier: qualifier,
		Line:      int(callNode.StartPoint().Row) + 1,
	}
}

// extractCallName only reports plain identifiers and attribute accesses.
// Calls on arbitrary expressions (`f()()`, `fns[0]()`) have no stable name.
func (p *PythonParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if attr != nil {
			qualifierValue := ""
			if object != nil {
				qualifierValue = strings.TrimSpace(object.Content(content))
			}
			return attr.Content(content), qualifierValue
		}
		qualifierValue, nameValue := splitQualifiedName(node.Content(content))
		return nameValue, qualifierValue
	case "parenthesized_expression":
		if inner := node.NamedChild(0); inner != nil {
			return p.extractCallName(inner, content)
		}
	}

	return "", ""
}

// collectReferences records attribute accesses and bare identifier uses across
// the whole module. Import statements bind names rather than use them and are
// skipped, as are uses of a parameter inside the function or lambda declaring
// it.
func (p *PythonParser) collectReferences(node *sitter.Node, content []byte, result *parser.Module, shadowed map[string]bool) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return
	case "function_definition", "lambda":
		// Defaults and annotations are evaluated in the enclosing scope.
		body := node.ChildByFieldName("body")
		inner := withParameters(shadowed, node.ChildByFieldName("parameters"), content)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if body != nil && child != nil && child.StartByte() == body.StartByte() && child.EndByte() == body.EndByte() {
				p.collectReferences(child, content, result, inner)
				continue
			}
			p.collectReferences(child, content, result, shadowed)
		}
		return
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object != nil && attr != nil && !(object.Type() == "identifier" && shadowed[object.Content(content)]) {
			result.Attributes = append(result.Attributes, parser.Attribute{
				Object: strings.TrimSpace(object.Content(content)),
				Name:   attr.Content(content),
				Line:   int(node.StartPoint().Row) + 1,
				Span:   nodeSpan(node),
			})
		}
	case "identifier":
		name := node.Content(content)
		if shadowed[name] || isBindingName(node) {
			return
		}
		result.Identifiers = append(result.Identifiers, parser.Identifier{
			Name: name,
			Line: int(node.StartPoint().Row) + 1,
			Span: nodeSpan(node),
		})
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.collectReferences(node.Child(i), content, result, shadowed)
	}
}

// withParameters returns shadowed extended with the names params declares.
func withParameters(shadowed map[string]bool, params *sitter.Node, content []byte) map[string]bool {
	if params == nil || params.NamedChildCount() == 0 {
		return shadowed
	}
	out := make(map[string]bool, len(shadowed)+int(params.NamedChildCount()))
	for name := range shadowed {
		out[name] = true
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if ident := parameterIdentifier(params.NamedChild(i)); ident != nil {
			out[ident.Content(content)] = true
		}
	}
	return out
}

// parameterIdentifier returns the name node of one entry of a parameter list.
func parameterIdentifier(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier":
		return node
	case "default_parameter", "typed_default_parameter":
		return parameterIdentifier(node.ChildByFieldName("name"))
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		return parameterIdentifier(node.NamedChild(0))
	}
	return nil
}

// isBindingName reports identifiers that are names of something rather than
// references to a value: attribute members, keyword argument names,
// function/class names and parameters.
func isBindingName(node *sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}

	var field string
	switch parent.Type() {
	case "parameters", "lambda_parameters", "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		return true
	case "attribute":
		field = "attribute"
	case "keyword_argument", "default_parameter", "typed_default_parameter":
		field = "name"
	case "function_definition", "class_definition":
		field = "name"
	default:
		return false
	}

	named := parent.ChildByFieldName(field)
	return named != nil && named.StartByte() == node.StartByte() && named.EndByte() == node.EndByte()
}

func parsePythonAliasedImport(node *sitter.Node, content []byte) (name, alias string) {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = strings.TrimSpace(nameNode.Content(content))
	}
	if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
		alias = strings.TrimSpace(aliasNode.Content(content))
	}
	if name == "" {
		name, alias = splitAliasByAs(node.Content(content))
	}
	return name, alias
}

func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPoint().Row) + 1
}

func nodeSpan(node *sitter.Node) parser.Span {
	return parser.Span{Start: int(node.StartByte()), End: int(node.EndByte())}
}
