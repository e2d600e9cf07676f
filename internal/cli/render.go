package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizgo/pkg/client"
	"github.com/matzehuels/vizgo/pkg/dot"
	"github.com/matzehuels/vizgo/pkg/pipeline"
	"github.com/matzehuels/vizgo/pkg/viz"
)

// stdinArg names standard input as the render source.
const stdinArg = "-"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string // output file; empty derives it from the input, "-" is stdout
	format      string
	engine      string
	yInvert     bool
	nop         int
	jsonObject  bool // print the decoded Graphviz JSON object
	noCache     bool
	refresh     bool
	interactive bool
	server      string // render on a running service instead of locally
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a DOT graph",
		Long: `Render a DOT graph with a Graphviz layout engine.

The source is read from the given file, or from stdin when the argument is
"-" or missing. When the source contains several graphs only the first one
is rendered.

Output goes to --output. Without it, a file input is written next to the
input with the format as extension, and stdin input is written to stdout.`,
		Example: `  vizgo render graph.dot
  vizgo render -f png -e neato -o graph.png graph.dot
  echo 'digraph { a -> b }' | vizgo render -f plain --y-invert`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := stdinArg
			if len(args) == 1 {
				input = args[0]
			}
			vopts := c.mergeRenderFlags(cmd, &opts)
			if opts.interactive {
				picked, ok, err := pickOptions(vopts)
				if err != nil {
					return err
				}
				if !ok {
					printInfo("Cancelled")
					return nil
				}
				vopts = picked
			}
			if err := vopts.Validate(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), input, vopts, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file ("-" for stdout)`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: "+strings.Join(viz.ValidFormats, ", "))
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "layout engine: "+strings.Join(viz.ValidEngines, ", "))
	cmd.Flags().BoolVar(&opts.yInvert, "y-invert", false, "flip y coordinates in coordinate-bearing formats")
	cmd.Flags().IntVar(&opts.nop, "nop", 0, "neato only: keep input positions (1) and edge splines (2+), like neato -n")
	cmd.Flags().BoolVar(&opts.jsonObject, "json", false, "render Graphviz JSON and print the decoded object")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even if the result is cached")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick engine and format interactively")
	cmd.Flags().StringVar(&opts.server, "server", "", "render on the service at this URL")

	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion(viz.ValidFormats))
	_ = cmd.RegisterFlagCompletionFunc("engine", fixedCompletion(viz.ValidEngines))

	return cmd
}

// mergeRenderFlags layers flags that were set explicitly over the config
// defaults.
func (c *CLI) mergeRenderFlags(cmd *cobra.Command, opts *renderOpts) viz.Options {
	vopts := c.Config.renderOptions()
	flags := cmd.Flags()
	if flags.Changed("format") {
		vopts.Format = opts.format
	}
	if flags.Changed("engine") {
		vopts.Engine = opts.engine
	}
	if flags.Changed("y-invert") {
		vopts.YInvert = opts.yInvert
	}
	if flags.Changed("nop") {
		vopts.Nop = opts.nop
	}
	if opts.jsonObject && vopts.Format != viz.FormatJSON0 {
		vopts.Format = viz.FormatJSON
	}
	return vopts
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// runRender reads input, renders it and writes the output.
func (c *CLI) runRender(ctx context.Context, input string, vopts viz.Options, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	src, err := readSource(input)
	if err != nil {
		return err
	}
	logger.Debug("Read source", "input", input, "bytes", len(src))

	if opts.server != "" {
		return renderRemote(ctx, src, vopts, input, opts)
	}
	if opts.jsonObject {
		obj, err := viz.RenderJSON(ctx, src, vopts)
		if err != nil {
			return err
		}
		return writeJSONObject(obj, opts.output)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	outputPath := outputPathFor(opts.output, input, vopts.Format)
	quiet := outputPath == ""

	var spinner *Spinner
	if !quiet {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Rendering with %s...", vopts.Layout()))
		spinner.Start()
	}

	prog := newProgress(logger)
	res, err := runner.Render(ctx, pipeline.Request{
		Source:  src,
		Options: vopts,
		Refresh: opts.refresh,
	})
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("Render failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Stop()
	}
	if err := writeOutput(outputPath, res.Output); err != nil {
		return err
	}
	if quiet {
		logger.Debug("Rendered", "format", res.Format, "engine", res.Engine, "bytes", len(res.Output), "cached", res.CacheHit)
		return nil
	}

	prog.done(fmt.Sprintf("Rendered %s", outputPath))
	if res.Discarded > 0 {
		printWarning("Source has %d graphs, rendered only the first", res.Graphs)
	}
	printSuccess("Rendered %s", StyleHighlight.Render(res.Format))
	printFile(outputPath)
	printStats(res.Graphs, len(res.Output), res.CacheHit)
	return nil
}

// renderRemote renders on a render service. The local cache is not used.
func renderRemote(ctx context.Context, src string, vopts viz.Options, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	cl := client.New(opts.server)

	if opts.jsonObject {
		obj, err := cl.RenderJSONObject(ctx, src, vopts)
		if err != nil {
			return err
		}
		return writeJSONObject(obj, opts.output)
	}

	prog := newProgress(logger)
	data, err := cl.RenderString(ctx, src, vopts)
	if err != nil {
		return err
	}
	outputPath := outputPathFor(opts.output, input, vopts.Format)
	if err := writeOutput(outputPath, data); err != nil {
		return err
	}
	if outputPath != "" {
		prog.done(fmt.Sprintf("Rendered %s on %s", outputPath, opts.server))
		if n := dot.Count(src); n > 1 {
			printWarning("Source has %d graphs, rendered only the first", n)
		}
	}
	return nil
}

// writeJSONObject prints a decoded Graphviz JSON object indented. The
// cache is bypassed for JSON objects.
func writeJSONObject(obj map[string]any, output string) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	if output == stdinArg {
		output = ""
	}
	return writeOutput(output, append(data, '\n'))
}

// readSource reads the DOT source from a file or stdin.
func readSource(input string) (string, error) {
	if input == stdinArg {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

// outputPathFor resolves where output goes. An empty result means stdout.
func outputPathFor(output, input, format string) string {
	switch {
	case output == stdinArg:
		return ""
	case output != "":
		return output
	case input == stdinArg:
		return ""
	}
	p := basePath(input) + "." + format
	if p == input {
		p = basePath(input) + ".out." + format
	}
	return p
}

// basePath strips a DOT extension from path.
func basePath(path string) string {
	ext := filepath.Ext(path)
	if slices.Contains([]string{".dot", ".gv"}, strings.ToLower(ext)) {
		return strings.TrimSuffix(path, ext)
	}
	return path
}

func writeOutput(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// openOutput opens path for writing, or stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
