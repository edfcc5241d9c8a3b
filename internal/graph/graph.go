// Package graph holds the workspace dependency DAG and its traversals.
package graph

import (
	"fmt"
	"sort"

	"github.com/example/monobuild/internal/domain"
)

// Graph is a dependency graph keyed by package ID with forward edges to
// dependencies. A node may be added before its dependencies; edges to IDs
// that never get a node are tolerated as leaves during traversal.
type Graph struct {
	nodes map[string]*domain.PackageNode
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*domain.PackageNode)}
}

// FromPackages builds a graph from a package set.
func FromPackages(pkgs []domain.PackageNode) *Graph {
	g := New()
	for _, p := range pkgs {
		g.AddNode(p)
	}
	return g
}

// AddNode inserts a node, overwriting any existing node with the same ID.
func (g *Graph) AddNode(node domain.PackageNode) {
	n := node
	g.nodes[n.ID] = &n
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*domain.PackageNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// traversal colors for the iterative DFS.
type color uint8

const (
	unvisited color = iota
	inProgress
	done
)

// TopologicalOrder returns the transitive dependency closure of target in
// dependency-first order, target last. Edges to IDs without a node are
// skipped as leaves. A cycle fails with ErrCyclicDependency naming the ID
// that closed it.
func (g *Graph) TopologicalOrder(target string) ([]*domain.PackageNode, error) {
	type frame struct {
		id   string
		next int
	}

	colors := make(map[string]color, len(g.nodes))
	var order []*domain.PackageNode
	var stack []*frame

	push := func(id string) error {
		switch colors[id] {
		case inProgress:
			return fmt.Errorf("%w: %s", domain.ErrCyclicDependency, id)
		case done:
			return nil
		}
		colors[id] = inProgress
		stack = append(stack, &frame{id: id})
		return nil
	}

	if err := push(target); err != nil {
		return nil, err
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		node, ok := g.nodes[f.id]
		if !ok {
			// Dangling edge: no node to expand or emit.
			colors[f.id] = done
			stack = stack[:len(stack)-1]
			continue
		}

		if f.next < len(node.Dependencies) {
			dep := node.Dependencies[f.next]
			f.next++
			if err := push(dep); err != nil {
				return nil, err
			}
			continue
		}

		colors[f.id] = done
		order = append(order, node)
		stack = stack[:len(stack)-1]
	}

	return order, nil
}

// DependencyPaths is TopologicalOrder projected to package paths.
func (g *Graph) DependencyPaths(target string) ([]string, error) {
	order, err := g.TopologicalOrder(target)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(order))
	for i, n := range order {
		paths[i] = n.Path
	}
	return paths, nil
}

// Dependents returns the given packages plus every package that transitively
// depends on one of them, sorted. IDs without a node are ignored.
func (g *Graph) Dependents(changed []string) []string {
	// Reverse adjacency: dependency ID -> IDs that depend on it.
	reverse := make(map[string][]string, len(g.nodes))
	for id, node := range g.nodes {
		for _, dep := range node.Dependencies {
			reverse[dep] = append(reverse[dep], id)
		}
	}

	affected := make(map[string]bool)
	var queue []string
	for _, id := range changed {
		if _, ok := g.nodes[id]; ok && !affected[id] {
			affected[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[id] {
			if !affected[dependent] {
				affected[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}
