/*
Package graph runs a small directed graph of processing stages over a typed state.

A turn of the book assistant is one run: stages produce a draft, classify it, and
optionally verify it against a catalog. The package itself knows nothing about books;
it provides the builder, compile-time validation, and the run loop those stages share.

# Building

	g := graph.New[Turn]().
	    AddStage("generate", generate).
	    AddStage("classify", classify).
	    AddStage("verify", verify).
	    AddEdge("generate", "classify").
	    AddRoute("classify", func(ctx graph.Context, t Turn) string {
	        if t.AboutBooks {
	            return "verify"
	        }
	        return graph.End
	    }).
	    AddEdge("verify", graph.End).
	    SetEntry("generate")

	compiled, err := g.Compile()

Compile checks that the entry exists, that every edge references a known stage, and
that End is reachable. Unreachable stages only produce a warning.

# Running

	ctx := graph.NewContext(context.Background(), graph.WithLogger(logger))
	out, err := compiled.Run(ctx, Turn{Question: "..."},
	    graph.WithRunID(runID),
	    graph.WithCheckpointing(store),
	    graph.WithMetrics(true))

Stages run one at a time; each receives the state returned by the previous one.
A stage error stops the run with a *StageError, a panic with a *PanicError. Callers
that must never fail a run (the conversation boundary) inspect these and substitute
their own terminal state.

# Checkpoints

With WithCheckpointing, the state is serialized to JSON after every stage and saved
under (run id, stage id). Checkpoint failures are logged and ignored unless
WithCheckpointFailureFatal is set.

# Thread safety

Graph is a single-goroutine builder. Compiled is immutable and safe for concurrent
Run calls; each run owns its state.
*/
package graph
