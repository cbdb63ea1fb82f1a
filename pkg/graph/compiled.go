package graph

import "slices"

// Compiled is an immutable, runnable graph produced by Graph.Compile.
// It is safe for concurrent use.
type Compiled[S any] struct {
	stages map[string]StageFunc[S]
	edges  map[string][]string
	routes map[string]RouterFunc[S]
	order  []string
	entry  string
}

// Entry returns the entry stage ID.
func (c *Compiled[S]) Entry() string {
	return c.entry
}

// StageIDs returns the registered stages in registration order.
func (c *Compiled[S]) StageIDs() []string {
	return slices.Clone(c.order)
}

// HasStage reports whether id is registered.
func (c *Compiled[S]) HasStage(id string) bool {
	_, ok := c.stages[id]
	return ok
}

// Successors returns the plain-edge targets of id. Route targets are decided
// at run time and are not included.
func (c *Compiled[S]) Successors(id string) []string {
	if id == End {
		return nil
	}
	return slices.Clone(c.edges[id])
}

// IsRouted reports whether id leaves through a router.
func (c *Compiled[S]) IsRouted(id string) bool {
	_, ok := c.routes[id]
	return ok
}
