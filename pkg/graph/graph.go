package graph

import (
	"fmt"
	"strings"
)

// Graph is a mutable builder. Chain AddStage, AddEdge, AddRoute and SetEntry,
// then call Compile. A Graph must not be shared between goroutines.
type Graph[S any] struct {
	stages map[string]StageFunc[S]
	edges  map[string][]string
	routes map[string]RouterFunc[S]
	order  []string
	entry  string
}

// New creates an empty graph over state type S.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		stages: make(map[string]StageFunc[S]),
		edges:  make(map[string][]string),
		routes: make(map[string]RouterFunc[S]),
	}
}

// AddStage registers a stage.
//
// Panics if id is empty, contains whitespace, collides with End, is already
// registered, or fn is nil. These are programming errors in graph wiring.
func (g *Graph[S]) AddStage(id string, fn StageFunc[S]) *Graph[S] {
	switch {
	case id == "":
		panic("graph: stage ID cannot be empty")
	case strings.EqualFold(id, End):
		panic("graph: stage ID cannot be the reserved word 'end'")
	case strings.ContainsAny(id, " \t\r\n"):
		panic("graph: stage ID cannot contain whitespace")
	case fn == nil:
		panic("graph: stage function cannot be nil")
	}
	if _, exists := g.stages[id]; exists {
		panic(fmt.Sprintf("graph: duplicate stage ID: %s", id))
	}

	g.stages[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional transition. References are checked by Compile,
// so edges may be added before the stages they connect.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddRoute attaches a router to a stage. A route takes precedence over plain
// edges from the same stage.
func (g *Graph[S]) AddRoute(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("graph: router function cannot be nil")
	}
	g.routes[from] = router
	return g
}

// SetEntry designates the first stage of every run.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.entry = id
	return g
}
