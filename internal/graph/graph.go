package graph

import (
	"sort"

	"github.com/pyshare-dev/pyshare/internal/parser"
)

// Node represents a top-level function in the call graph
type Node struct {
	Name       string
	Definition *parser.Definition
	OutEdges   []string // functions of the same module this node calls, in call order
	InEdges    []string // functions of the same module calling this node
}

// Graph is the intra-module call graph of one module's top-level functions
type Graph struct {
	Nodes map[string]*Node
	Order []string // declaration order
}

// NewGraph creates a new empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		Order: make([]string, 0),
	}
}

// BuildFromModule constructs the graph from a parsed module. Calls to names
// the module does not define (builtins, imported functions) produce no edge.
func BuildFromModule(module *parser.Module) *Graph {
	defs, order := module.Definitions()
	return BuildFromDefinitions(defs, order)
}

// BuildFromDefinitions constructs the graph from a name -> definition map.
func BuildFromDefinitions(defs map[string]*parser.Definition, order []string) *Graph {
	g := NewGraph()

	// First pass: create all nodes
	for _, name := range order {
		def, ok := defs[name]
		if !ok || g.Nodes[name] != nil {
			continue
		}
		g.Nodes[name] = &Node{
			Name:       name,
			Definition: def,
			OutEdges:   make([]string, 0),
			InEdges:    make([]string, 0),
		}
		g.Order = append(g.Order, name)
	}

	// Second pass: edges from call sets
	for _, name := range g.Order {
		node := g.Nodes[name]
		for _, called := range node.Definition.CallSet() {
			target, ok := g.Nodes[called]
			if !ok {
				continue
			}
			node.OutEdges = append(node.OutEdges, called)
			if called != name {
				target.InEdges = append(target.InEdges, name)
			}
		}
	}

	for _, node := range g.Nodes {
		sort.Strings(node.InEdges)
	}

	return g
}

// Definitions returns the name -> definition map backing the graph.
func (g *Graph) Definitions() map[string]*parser.Definition {
	out := make(map[string]*parser.Definition, len(g.Nodes))
	for name, node := range g.Nodes {
		out[name] = node.Definition
	}
	return out
}

// NewResolver returns a resolver over the graph's definitions with a fresh
// visited set.
func (g *Graph) NewResolver() *Resolver {
	return NewResolver(g.Definitions(), nil)
}

// Callees returns the direct same-module callees of name.
func (g *Graph) Callees(name string) []string {
	node, ok := g.Nodes[name]
	if !ok {
		return nil
	}
	return node.OutEdges
}

// Callers returns the direct same-module callers of name.
func (g *Graph) Callers(name string) []string {
	node, ok := g.Nodes[name]
	if !ok {
		return nil
	}
	return node.InEdges
}
