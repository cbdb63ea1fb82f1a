package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Compile validates the graph and freezes it.
//
// Checks, all of which are reported together:
//  1. an entry stage is set and registered
//  2. every edge source and target is registered (targets may be End)
//  3. every route source is registered
//  4. End is reachable from the entry
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	var errs []error

	if g.entry == "" {
		errs = append(errs, ErrNoEntry)
	} else if _, ok := g.stages[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entry))
	}

	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		if _, ok := g.stages[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge source %q", ErrStageNotFound, from))
		}
		for _, to := range g.edges[from] {
			if to == End {
				continue
			}
			if _, ok := g.stages[to]; !ok {
				errs = append(errs, fmt.Errorf("%w: edge target %q", ErrStageNotFound, to))
			}
		}
	}

	for _, from := range slices.Sorted(maps.Keys(g.routes)) {
		if _, ok := g.stages[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: route source %q", ErrStageNotFound, from))
		}
	}

	if len(errs) == 0 && !g.reachesEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g.warnUnreachable()
	return g.freeze(), nil
}

// reachesEnd propagates "can reach End" backwards until it stabilizes.
// A routed stage is assumed able to return End.
func (g *Graph[S]) reachesEnd() bool {
	ok := map[string]bool{End: true}
	for from := range g.routes {
		ok[from] = true
	}

	for changed := true; changed; {
		changed = false
		for from, targets := range g.edges {
			if ok[from] {
				continue
			}
			for _, to := range targets {
				if ok[to] {
					ok[from] = true
					changed = true
					break
				}
			}
		}
	}
	return ok[g.entry]
}

// warnUnreachable logs stages no path from the entry can visit. Routers may
// return any stage, so a routed stage makes every stage reachable.
func (g *Graph[S]) warnUnreachable() {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if _, routed := g.routes[cur]; routed {
			return
		}
		for _, next := range g.edges[cur] {
			if next != End && !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, id := range g.order {
		if !seen[id] {
			slog.Warn("stage is unreachable from entry", "stage_id", id)
		}
	}
}

func (g *Graph[S]) freeze() *Compiled[S] {
	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = slices.Clone(targets)
	}
	return &Compiled[S]{
		stages: maps.Clone(g.stages),
		edges:  edges,
		routes: maps.Clone(g.routes),
		order:  slices.Clone(g.order),
		entry:  g.entry,
	}
}
