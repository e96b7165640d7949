package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memtower/pkg/pipeline"
)

// layoutCommand creates the layout command, which writes the computed
// timeline as JSON.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  traceFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [trace.json]",
		Short: "Compute the timeline layout of a memory trace",
		Long: `Compute the timeline layout of a memory trace.

The trace may be a structured document ({"events": [...], "scopes": [...]}) or
a legacy event array; gzipped input is detected automatically. The output is a
layout.json file (same format as 'render -f json').

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, flags traceFlags) error {
	opts, err := c.options(input, flags)
	if err != nil {
		return err
	}
	opts.Formats = []string{pipeline.FormatJSON}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "" {
		output = artifactPath(basePath("", input), pipeline.FormatJSON)
	}
	if err := os.WriteFile(output, res.Artifacts[pipeline.FormatJSON], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(res.Stats.EventCount, res.Stats.ContainerCount, res.CacheInfo.RenderHit)
	fmt.Println()
	printNextStep("Render", "memtower render "+input)

	return nil
}
