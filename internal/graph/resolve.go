package graph

import "github.com/pyshare-dev/pyshare/internal/parser"

// Cycle is a chain of calls that leads back to a function still being
// resolved, e.g. [a b a].
type Cycle []string

// Resolver computes dependency lists over one set of available definitions.
// Its visited set is shared by every Resolve call, so a function requested
// twice (directly or as a dependency) is emitted only once per resolver.
type Resolver struct {
	available map[string]*parser.Definition
	visited   map[string]bool
	stack     []string
	onStack   map[string]bool
	cycles    []Cycle
}

// NewResolver creates a resolver. A nil visited set starts empty; a non-nil
// one is used and mutated in place.
func NewResolver(available map[string]*parser.Definition, visited map[string]bool) *Resolver {
	if visited == nil {
		visited = make(map[string]bool)
	}
	return &Resolver{
		available: available,
		visited:   visited,
		onStack:   make(map[string]bool),
	}
}

// Resolve returns the definitions needed by name that have not been emitted
// yet, dependencies first and name itself last. Names outside the available
// set are external and yield nothing.
func Resolve(name string, available map[string]*parser.Definition, visited map[string]bool) []*parser.Definition {
	return NewResolver(available, visited).Resolve(name)
}

// Resolve returns the not yet emitted definitions name depends on, followed
// by name itself.
func (r *Resolver) Resolve(name string) []*parser.Definition {
	if r.visited[name] {
		if r.onStack[name] {
			r.recordCycle(name)
		}
		return nil
	}

	def, ok := r.available[name]
	if !ok {
		return nil
	}

	// Mark before recursing so cycles terminate.
	r.visited[name] = true
	r.onStack[name] = true
	r.stack = append(r.stack, name)

	deps := make([]*parser.Definition, 0)
	for _, called := range def.CallSet() {
		if _, ok := r.available[called]; !ok {
			continue
		}
		deps = append(deps, r.Resolve(called)...)
	}

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.onStack, name)

	return append(deps, def)
}

// Cycles returns the mutual-recursion chains met during resolution. The
// function closing a cycle is emitted after the function that calls it back,
// which Python tolerates because names are looked up at call time.
// Direct self-recursion is not reported.
func (r *Resolver) Cycles() []Cycle {
	return r.cycles
}

func (r *Resolver) recordCycle(name string) {
	start := -1
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i] == name {
			start = i
			break
		}
	}
	if start == -1 || start == len(r.stack)-1 {
		return
	}
	cycle := make(Cycle, 0, len(r.stack)-start+1)
	cycle = append(cycle, r.stack[start:]...)
	cycle = append(cycle, name)
	r.cycles = append(r.cycles, cycle)
}
