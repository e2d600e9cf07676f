package viz

import (
	"bytes"
	"context"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/matzehuels/vizgo/pkg/dot"
	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/observability"
	"github.com/matzehuels/vizgo/pkg/viz/yinvert"
)

// Render lays out and renders the first graph in src.
//
// Graphs after the first are parsed and closed without being rendered. An
// error in any of them fails the call. A source without any graph fails with
// code NO_GRAPH.
//
// ctx is checked between graphs and before rendering; a layout already
// running inside the engine is not interrupted.
func Render(ctx context.Context, src string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := errors.ValidateSource(src); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	hooks := observability.Render()
	hooks.OnRenderStart(ctx, opts.Format, opts.Layout())

	start := time.Now()
	res, err := render(ctx, src, opts)
	elapsed := time.Since(start)

	size := 0
	if res != nil {
		res.Duration = elapsed
		size = len(res.Output)
	}
	hooks.OnRenderComplete(ctx, opts.Format, opts.Layout(), size, elapsed, err)
	return res, err
}

func render(ctx context.Context, src string, opts Options) (*Result, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(opts.Layout()))

	res := &Result{Format: opts.Format, Engine: opts.Layout()}
	hooks := observability.Render()

	sc := dot.NewScanner(src)
	for sc.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := sc.Chunk()

		start := time.Now()
		g, err := parse(chunk)
		hooks.OnParseComplete(ctx, chunk.Index, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		res.Graphs++

		if res.Graphs > 1 {
			res.Discarded++
			g.Close()
			continue
		}

		out, err := renderGraph(ctx, gv, g, opts)
		g.Close()
		if err != nil {
			return nil, err
		}
		res.Output = out
	}

	if res.Graphs == 0 {
		return nil, errors.New(errors.ErrCodeNoGraph, "no graph found in source")
	}
	return res, nil
}

// parse reads the graph in chunk. A nil graph with a nil error means the
// engine found nothing to read.
//
// The engine keeps its last error message across calls and returns it
// whenever a parse yields no graph. The scanner never hands out a chunk of
// only comments, so an error here comes from parsing this chunk.
func parse(chunk dot.Chunk) (*cgraph.Graph, error) {
	g, err := graphviz.ParseBytes([]byte(chunk.Padded()))
	switch {
	case g != nil && err == nil:
		return g, nil
	case g != nil:
		g.Close()
	case err == nil:
		return nil, nil
	}
	return nil, errors.Wrap(errors.ErrCodeParse, err, "parse graph %d at line %d", chunk.Index+1, chunk.Line)
}

func renderGraph(ctx context.Context, gv *graphviz.Graphviz, g *cgraph.Graph, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.Format(opts.Format), &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s with %s", opts.Format, opts.Layout())
	}

	out := buf.Bytes()
	if opts.YInvert && yinvert.Supports(opts.Format) {
		flipped, err := yinvert.Apply(opts.Format, out)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, err, "invert y axis")
		}
		out = flipped
	}
	return out, nil
}
