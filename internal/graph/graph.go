// Package graph keeps the file-level import graph of a project and answers
// which files depend on a component.
package graph

import (
	"sort"
	"sync"
)

type node struct {
	dependencies map[string]bool
	dependents   map[string]bool
}

func newNode() *node {
	return &node{dependencies: map[string]bool{}, dependents: map[string]bool{}}
}

// Graph is a directed import graph. It is safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: map[string]*node{}}
}

// Build constructs a graph from file -> resolved import edges. Import
// targets that are not keys of edges still become nodes.
func Build(edges map[string][]string) *Graph {
	g := New()
	for file, deps := range edges {
		g.Update(file, deps)
	}
	return g
}

func (g *Graph) get(file string) *node {
	n, ok := g.nodes[file]
	if !ok {
		n = newNode()
		g.nodes[file] = n
	}
	return n
}

// Update replaces the outgoing edges of file.
func (g *Graph) Update(file string, deps []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.get(file)
	for old := range n.dependencies {
		delete(g.nodes[old].dependents, file)
	}
	n.dependencies = map[string]bool{}
	for _, dep := range deps {
		if dep == file {
			continue
		}
		n.dependencies[dep] = true
		g.get(dep).dependents[file] = true
	}
}

// Dependents returns the files importing file directly, sorted.
func (g *Graph) Dependents(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[file]; ok {
		return sortedKeys(n.dependents)
	}
	return []string{}
}

// Dependencies returns the files file imports directly, sorted.
func (g *Graph) Dependencies(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[file]; ok {
		return sortedKeys(n.dependencies)
	}
	return []string{}
}

// Files returns every node, sorted.
func (g *Graph) Files() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	files := make([]string, 0, len(g.nodes))
	for f := range g.nodes {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Edge is one (dependency, dependent) pair.
type Edge struct {
	Dependency string
	Dependent  string
}

// Edges returns every edge sorted by dependency, then dependent.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var edges []Edge
	for dep, n := range g.nodes {
		for dependent := range n.dependents {
			edges = append(edges, Edge{Dependency: dep, Dependent: dependent})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dependency != edges[j].Dependency {
			return edges[i].Dependency < edges[j].Dependency
		}
		return edges[i].Dependent < edges[j].Dependent
	})
	return edges
}

// Affected returns the files whose analysis may change when changed files
// change: the files themselves and their transitive dependents, sorted.
func (g *Graph) Affected(changed ...string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{}
	stack := append([]string(nil), changed...)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f] {
			continue
		}
		visited[f] = true
		if n, ok := g.nodes[f]; ok {
			for d := range n.dependents {
				stack = append(stack, d)
			}
		}
	}
	return sortedKeys(visited)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
