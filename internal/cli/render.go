package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// renderOpts holds the render-only flags.
type renderOpts struct {
	output     string
	formats    string
	tooltips   bool
	noAccesses bool
	noPolygon  bool
	noStats    bool
	detailed   bool
	scale      float64
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		ro    renderOpts
		flags traceFlags
	)

	cmd := &cobra.Command{
		Use:   "render [trace.json]",
		Short: "Render a memory trace as a stacked timeline",
		Long: `Render a memory trace as a stacked timeline.

Formats:
  svg     the timeline chart (default)
  png     the chart rasterized
  pdf     the chart as a single-page PDF
  json    the computed layout
  dot     the scope tree in Graphviz DOT
  scopes  the scope tree drawn by Graphviz

Several formats may be given comma-separated. Each is written next to the
input (or the -o base path) with its own extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], ro, flags)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file or base path (default: input path without extension)")
	cmd.Flags().StringVarP(&ro.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json, dot, scopes (comma-separated)")
	cmd.Flags().BoolVar(&ro.tooltips, "tooltips", false, "embed hover tooltips with access details")
	cmd.Flags().BoolVar(&ro.noAccesses, "no-accesses", false, "hide read/write marks")
	cmd.Flags().BoolVar(&ro.noPolygon, "no-polygon", false, "hide the footprint outline")
	cmd.Flags().BoolVar(&ro.noStats, "no-stats", false, "hide the statistics footer")
	cmd.Flags().BoolVar(&ro.detailed, "detailed", false, "label scope tree nodes with event ranges")
	cmd.Flags().Float64Var(&ro.scale, "scale", 0, "PNG scale factor (default 0.2)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, ro renderOpts, flags traceFlags) error {
	opts, err := c.options(input, flags)
	if err != nil {
		return err
	}
	opts.Formats = parseFormats(ro.formats)
	opts.Tooltips = ro.tooltips
	opts.NoAccesses = ro.noAccesses
	opts.NoPolygon = ro.noPolygon
	opts.NoStats = ro.noStats
	opts.Detailed = ro.detailed
	opts.Scale = ro.scale

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()

	prog := newProgress(c.Logger)
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done("Rendered " + strings.Join(opts.Formats, ", "))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(res.Artifacts, opts.Formats, basePath(ro.output, input))
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", opts.Source)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.EventCount, res.Stats.ContainerCount, res.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes each format's artifact and returns the paths in
// format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := artifactPath(base, f)
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
