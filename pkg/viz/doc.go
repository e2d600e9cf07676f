// Package viz renders DOT graph descriptions with Graphviz.
//
// The engine is Graphviz compiled to WebAssembly (github.com/goccy/go-graphviz).
// Every call acquires a fresh engine context and releases it before returning,
// so calls share no state and may run concurrently.
//
// # Rendering
//
//	res, err := viz.Render(ctx, "digraph { a -> b }", viz.Options{Format: viz.FormatSVG})
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(res.Output)
//
// A source may hold several graphs. Only the first is laid out and rendered;
// the others are parsed (so syntax errors still surface) and discarded.
// [Result.Discarded] reports how many were dropped.
//
// # Flags
//
// [Options.YInvert] mirrors the y axis of coordinate-bearing text formats, as
// Graphviz's -y flag does. [Options.Nop] is neato's -n flag: neato keeps the
// positions given in the input. Other engines ignore it.
//
// [Session] keeps the stateful setter API for hosts that configure flags once
// and then render many sources.
package viz
