package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memtower/pkg/pipeline"
)

const defaultTopBuffers = 10

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var (
		asJSON bool
		top    int
		flags  traceFlags
	)

	cmd := &cobra.Command{
		Use:   "stats [trace.json]",
		Short: "Summarize the buffers and reuse of a memory trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(cmd.Context(), args[0], asJSON, top, flags)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", defaultTopBuffers, "number of buffers to list (0 for all)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runStats(ctx context.Context, input string, asJSON bool, top int, flags traceFlags) error {
	opts, err := c.options(input, flags)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sum, hit, err := runner.Stats(ctx, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Println(StyleTitle.Render(sum.Source))
	printKeyValue("Shape", sum.Shape)
	printKeyValue("Events", strconv.Itoa(sum.EventCount))
	if sum.Skipped > 0 {
		printWarning("%d events skipped", sum.Skipped)
	}
	printKeyValue("Buffers", strconv.Itoa(sum.Containers))
	printKeyValue("Reads / writes", fmt.Sprintf("%d / %d", sum.Reads, sum.Writes))
	printKeyValue("Scopes", strconv.Itoa(sum.Scopes))
	printKeyValue("Peak footprint", formatSize(sum.MaxFootprint))
	printKeyValue("Input only", formatSize(sum.InputOnly))
	printKeyValue("Input/output", formatSize(sum.InputOutput))
	printKeyValue("Output only", formatSize(sum.OutputOnly))
	printKeyValue("Other", formatSize(sum.Other))
	printKeyValue("Median reuse", formatFloat(sum.MedianReuseDistance))
	printKeyValue("Median use %", formatFloat(sum.MedianUseRatio))
	if sum.Warnings > 0 {
		printWarning("%d untracked accesses", sum.Warnings)
	}

	if len(sum.Buffers) > 0 {
		fmt.Println()
		fmt.Println(bufferTable(sum.Buffers, top))
	}
	printStats(sum.EventCount, sum.Containers, hit)
	return nil
}

// bufferTable renders the first top buffers. top <= 0 lists all.
func bufferTable(bufs []pipeline.BufferSummary, top int) string {
	if top > 0 && len(bufs) > top {
		bufs = bufs[:top]
	}

	rows := make([][]string, 0, len(bufs))
	for _, b := range bufs {
		name := b.Name
		if b.Conditional {
			name += " ?"
		}
		rows = append(rows, []string{
			name,
			formatSize(b.Size),
			b.Role,
			fmt.Sprintf("%d-%d", b.AllocatedAt, b.DeallocatedAt),
			strconv.Itoa(b.Accesses),
			formatFloat(b.UseRatio),
			formatFloat(b.MeanReuse),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Buffer", "Size", "Role", "Live", "Accesses", "Use %", "Reuse").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 2 {
				return roleStyles[bufs[row].Role]
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// formatSize prints byte counts in IEC units, falling back to the raw
// number for values humanize cannot represent.
func formatSize(f pipeline.Float) string {
	v := float64(f)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return formatFloat(f)
	}
	return humanize.IBytes(uint64(v))
}

func formatFloat(f pipeline.Float) string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "∞"
	case math.IsNaN(v):
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
