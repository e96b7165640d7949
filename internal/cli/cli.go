// Package cli implements the memtower command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memtower/internal/config"
	"github.com/matzehuels/memtower/pkg/buildinfo"
	"github.com/matzehuels/memtower/pkg/cache"
	"github.com/matzehuels/memtower/pkg/observability"
	"github.com/matzehuels/memtower/pkg/pipeline"
	"github.com/matzehuels/memtower/pkg/roles"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     config.File
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the pipeline,
// cache and HTTP hooks are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Register()
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "memtower",
		Short: "Memtower draws memory traces as stacked timelines",
		Long: `Memtower turns a memory-event trace (allocations, accesses, deallocations and
scopes) into a stacked timeline: one box per buffer, grouped by role, with
read and write marks, scope bands, a footprint outline and reuse statistics.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/memtower/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	path, required := c.configPath, true
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil
		}
		path, required = p, false
	}
	f, err := config.LoadFile(path, required)
	if err != nil {
		return err
	}
	c.config = f
	c.Logger.Debug("loaded config", "path", path)
	return nil
}

// newRunner creates a pipeline runner using the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if c.config.Cache.URL != "" {
		return cache.Open(ctx, c.config.Cache.URL)
	}
	dir, err := config.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// traceFlags are the input and layout flags shared by layout, render,
// stats and inspect.
type traceFlags struct {
	shape         string
	rules         string
	caseSensitive bool
	targetWidth   float64
	heightCap     float64
	noCache       bool
	refresh       bool
}

func (f *traceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.shape, "shape", "", "trace shape: auto (default), structured, legacy")
	cmd.Flags().StringVarP(&f.rules, "rules", "r", "", "role rules file (.json, .yaml, .toml, optionally .gz)")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "match role rules case-sensitively")
	cmd.Flags().Float64Var(&f.targetWidth, "width", 0, "chart width in layout units (default 10000)")
	cmd.Flags().Float64Var(&f.heightCap, "height-cap", 0, "maximum chart height in layout units (default 10000)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// options reads the trace and rules files and merges flags over the
// config file.
func (c *CLI) options(input string, f traceFlags) (pipeline.Options, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("read trace %s: %w", input, err)
	}
	opts := pipeline.Options{
		Source:        filepath.Base(input),
		Trace:         data,
		Shape:         firstNonEmpty(f.shape, c.config.Layout.Shape),
		CaseSensitive: f.caseSensitive || c.config.Rules.CaseSensitive,
		TargetWidth:   firstNonZero(f.targetWidth, c.config.Layout.TargetWidth),
		HeightCap:     firstNonZero(f.heightCap, c.config.Layout.HeightCap),
		Refresh:       f.refresh,
		Logger:        c.Logger,
	}

	if path := firstNonEmpty(f.rules, c.config.Rules.Path); path != "" {
		rules, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("read rules %s: %w", path, err)
		}
		opts.Rules = rules
		opts.RulesFormat = roles.FormatForPath(path)
	}
	return opts, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// parseFormats splits a comma-separated format list.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// basePath strips a trailing .gz and the extension from the input path, or
// a known format extension from an explicit output path.
func basePath(output, input string) string {
	if output == "" {
		input = strings.TrimSuffix(input, ".gz")
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	for _, f := range pipeline.Formats {
		if ext == f {
			return strings.TrimSuffix(output, "."+ext)
		}
	}
	return output
}

// artifactPath returns the file name of one format's artifact.
func artifactPath(base, format string) string {
	switch format {
	case pipeline.FormatJSON:
		return base + ".layout.json"
	case pipeline.FormatScopes:
		return base + ".scopes.svg"
	}
	return base + "." + format
}
