// Package dot splits DOT source text into the graphs it contains.
//
// A DOT file may hold any number of top-level graphs:
//
//	digraph a { x -> y }
//	graph b { p -- q }
//
// The Graphviz engine parses one graph per call, so callers that need to
// visit every graph use a [Scanner]:
//
//	s := dot.NewScanner(src)
//	for s.Next() {
//	    c := s.Chunk()
//	    // c.Text is the exact source of graph c.Index
//	}
//
// The scanner does not validate DOT. It only finds graph boundaries, skipping
// comments, quoted strings and HTML strings so that braces inside them do not
// count. Text it cannot close (unbalanced braces, trailing garbage) is
// returned as a final chunk with Closed set to false, leaving it to the engine
// to report the syntax error.
package dot
