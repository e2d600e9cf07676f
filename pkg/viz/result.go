package viz

import "time"

// Result is the outcome of a successful render.
type Result struct {
	// Output holds the rendered bytes of the first graph.
	Output []byte

	// Format and Engine are the resolved output format and the layout that
	// ran (see [Options.Layout]).
	Format string
	Engine string

	// Graphs is the number of graphs parsed from the source.
	Graphs int

	// Discarded is the number of graphs parsed but not rendered.
	Discarded int

	Duration time.Duration
}
