package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memtower/pkg/pipeline"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// inspectCommand creates the inspect command, an interactive buffer browser.
func (c *CLI) inspectCommand() *cobra.Command {
	var flags traceFlags

	cmd := &cobra.Command{
		Use:   "inspect [trace.json]",
		Short: "Browse the buffers of a memory trace interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, flags traceFlags) error {
	opts, err := c.options(input, flags)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sum, _, err := runner.Stats(ctx, opts)
	if err != nil {
		return err
	}
	if len(sum.Buffers) == 0 {
		printInfo("No buffers in %s", sum.Source)
		return nil
	}

	_, err = tea.NewProgram(NewBufferListModel(sum), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// BufferListModel - Interactive buffer browser
// =============================================================================

// BufferListModel is the bubbletea model for browsing a trace summary.
type BufferListModel struct {
	Summary *pipeline.Summary
	Cursor  int
	Height  int
	Offset  int
}

// NewBufferListModel creates a buffer list over sum.Buffers.
func NewBufferListModel(sum *pipeline.Summary) BufferListModel {
	return BufferListModel{Summary: sum, Height: 15}
}

func (m BufferListModel) Init() tea.Cmd {
	return nil
}

func (m BufferListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.Summary.Buffers)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < n-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(n-1, 0)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-12, 5)
	}

	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m, nil
}

func (m BufferListModel) View() string {
	var b strings.Builder
	bufs := m.Summary.Buffers

	b.WriteString(StyleTitle.Render(m.Summary.Source))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(bufs))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		buf := bufs[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, buf.Name, formatSize(buf.Size), buf.Role, strconv.Itoa(buf.Accesses)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Buffer", "Size", "Role", "Accesses").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(bufs) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 3 {
				base = roleStyles[bufs[idx].Role]
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(bufs) > 0 {
		b.WriteString(bufferDetail(bufs[m.Cursor]))
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(bufs))))

	return b.String()
}

// bufferDetail describes one buffer on two lines.
func bufferDetail(b pipeline.BufferSummary) string {
	name := StyleHighlight.Render(b.Name)
	if b.Conditional {
		name += StyleWarning.Render(" (conditional)")
	}
	reused := "not reused"
	if b.Reused {
		reused = "mean reuse distance " + formatFloat(b.MeanReuse)
	}
	return fmt.Sprintf("  %s\n  %s\n",
		name,
		StyleDim.Render(fmt.Sprintf("live %d-%d · %d accesses · use %s%% · %s",
			b.AllocatedAt, b.DeallocatedAt, b.Accesses, formatFloat(b.UseRatio), reused)))
}
