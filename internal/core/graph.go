package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// DependencyGraph maps each recipe to the set of recipes it depends on.
type DependencyGraph struct {
	edges map[string]map[string]struct{}
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: map[string]map[string]struct{}{}}
}

// AddEdge registers a mandatory dependency. Both nodes are created even when
// dependent == dependency, but self-edges are not recorded.
func (g *DependencyGraph) AddEdge(dependent string, dependency string) {
	g.ensure(dependent)
	g.ensure(dependency)
	if dependent != dependency {
		g.edges[dependent][dependency] = struct{}{}
	}
}

// AddOptionalEdge adds an ordering-only edge when both nodes already exist.
// Call it after every mandatory edge is known.
func (g *DependencyGraph) AddOptionalEdge(dependent string, dependency string) {
	if !g.Has(dependent) || !g.Has(dependency) {
		return
	}
	g.AddEdge(dependent, dependency)
}

func (g *DependencyGraph) Has(name string) bool {
	_, ok := g.edges[name]
	return ok
}

func (g *DependencyGraph) Len() int {
	return len(g.edges)
}

// Order returns every node with dependencies before dependents.
func (g *DependencyGraph) Order() ([]string, error) {
	batches, err := g.Batches()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, batch := range batches {
		order = append(order, batch...)
	}
	return order, nil
}

// Batches runs Kahn's algorithm and returns the nodes released by each
// iteration, sorted by name. A cycle fails the whole sort; nothing is
// returned for the nodes that were already released.
func (g *DependencyGraph) Batches() ([][]string, error) {
	remaining := make(map[string]map[string]struct{}, len(g.edges))
	for name, deps := range g.edges {
		copied := make(map[string]struct{}, len(deps))
		for dep := range deps {
			copied[dep] = struct{}{}
		}
		remaining[name] = copied
	}

	var batches [][]string
	for len(remaining) > 0 {
		var ready []string
		for name, deps := range remaining {
			if len(deps) == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("dependency cycle detected: %s", describeGraph(remaining)))
		}
		sort.Strings(ready)
		for _, name := range ready {
			delete(remaining, name)
		}
		for _, deps := range remaining {
			for _, name := range ready {
				delete(deps, name)
			}
		}
		batches = append(batches, ready)
	}
	return batches, nil
}

// CycleNodes returns the sorted names left unresolved by a failed sort, or
// nil when the graph is acyclic.
func (g *DependencyGraph) CycleNodes() []string {
	remaining := map[string]int{}
	dependents := map[string][]string{}
	for name, deps := range g.edges {
		remaining[name] = len(deps)
		for dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}
	var queue []string
	for name, count := range remaining {
		if count == 0 {
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		delete(remaining, name)
		for _, dependent := range dependents[name] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	names := make([]string, 0, len(remaining))
	for name := range remaining {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *DependencyGraph) ensure(name string) {
	if _, ok := g.edges[name]; !ok {
		g.edges[name] = map[string]struct{}{}
	}
}

func describeGraph(graph map[string]map[string]struct{}) string {
	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		deps := make([]string, 0, len(graph[name]))
		for dep := range graph[name] {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		parts = append(parts, fmt.Sprintf("%s -> [%s]", name, strings.Join(deps, ", ")))
	}
	return strings.Join(parts, "; ")
}
