package graph

// End is the terminal stage identifier. Routing to End finishes the run.
const End = "end"

// StageFunc transforms the run state. The state is passed by value; return the
// updated copy.
type StageFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the stage that follows a conditional edge. It must return a
// registered stage ID or End.
type RouterFunc[S any] func(ctx Context, state S) string
