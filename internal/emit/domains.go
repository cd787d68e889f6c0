package emit

import (
	"sort"

	"github.com/conifer-lang/conifer/internal/core"
)

// CallGraph is a dependency graph between declarations of one module or
// let block.
type CallGraph struct {
	nodes   []string
	edges   map[string][]string
	nodeSet map[string]bool
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		edges:   make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// AddNode adds a declaration to the graph.
func (g *CallGraph) AddNode(name string) {
	if !g.nodeSet[name] {
		g.nodes = append(g.nodes, name)
		g.nodeSet[name] = true
		g.edges[name] = []string{}
	}
}

// AddEdge adds a dependency from caller to callee.
func (g *CallGraph) AddEdge(caller, callee string) {
	g.AddNode(caller)
	g.AddNode(callee)
	g.edges[caller] = append(g.edges[caller], callee)
}

// SCCs computes strongly connected components using Tarjan's algorithm.
// Components come out dependencies-first, so the result is directly the
// recursion-domain order: for any two domains D_i, D_j with i < j, no
// member of D_i depends on a member of D_j.
func (g *CallGraph) SCCs() [][]string {
	index := 0
	stack := []string{}
	indices := make(map[string]int)
	lowlinks := make(map[string]int)
	onStack := make(map[string]bool)
	var sccs [][]string

	var strongconnect func(string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, ok := indices[w]; !ok {
				strongconnect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	// Visit nodes in sorted order so the domain order is deterministic.
	ordered := append([]string{}, g.nodes...)
	sort.Strings(ordered)
	for _, node := range ordered {
		if _, ok := indices[node]; !ok {
			strongconnect(node)
		}
	}

	return sccs
}

// DeclarationDependencies maps each declaration to the block-local names
// it references.
func DeclarationDependencies(decls map[string]core.Expr) map[string][]string {
	deps := map[string][]string{}
	for name, expr := range decls {
		var local []string
		for _, ref := range core.FreeReferences(expr) {
			if _, isLocal := decls[ref]; isLocal {
				local = append(local, ref)
			}
		}
		deps[name] = local
	}
	return deps
}

// ReachableDeclarations returns the declarations reachable from the given
// roots through block-local dependencies.
func ReachableDeclarations(roots []string, deps map[string][]string) map[string]bool {
	reachable := map[string]bool{}
	queue := append([]string{}, roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if reachable[name] {
			continue
		}
		if _, known := deps[name]; !known {
			continue
		}
		reachable[name] = true
		queue = append(queue, deps[name]...)
	}
	return reachable
}

// RecursionDomains partitions the reachable declarations into strongly
// connected components ordered so that every domain precedes the domains
// depending on it. Mutually recursive declarations share one domain.
func RecursionDomains(reachable map[string]bool, deps map[string][]string) [][]string {
	graph := NewCallGraph()
	for _, name := range core.SortedNames(reachable) {
		graph.AddNode(name)
		callees := append([]string{}, deps[name]...)
		sort.Strings(callees)
		for _, callee := range callees {
			if reachable[callee] {
				graph.AddEdge(name, callee)
			}
		}
	}
	return graph.SCCs()
}

// TransitiveDependencies returns the closure of a declaration's
// block-local dependencies, itself included when it is self-recursive.
func TransitiveDependencies(name string, deps map[string][]string) map[string]bool {
	return ReachableDeclarations(deps[name], deps)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
