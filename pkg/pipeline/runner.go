package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memtower/pkg/cache"
	"github.com/matzehuels/memtower/pkg/observability"
	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Runner executes the pipeline with caching. It holds no per-run state and
// is safe for concurrent use.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// selects [cache.DefaultKeyer].
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load → layout → render. When every requested artifact is
// cached the trace is not decoded at all.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{TraceHash: cache.Hash(opts.Trace)}
	if !opts.Refresh {
		if artifacts, ok := r.cachedArtifacts(ctx, result.TraceHash, opts); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			r.Logger.Debug("artifacts served from cache", "formats", opts.Formats)
			return result, nil
		}
	}

	tr, l, err := r.layout(ctx, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.Trace, result.Layout = tr, l

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, err := Render(ctx, l, opts)
	result.Stats.RenderTime = time.Since(start)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	r.Logger.Info("rendered outputs", "formats", opts.Formats, "duration", result.Stats.RenderTime)

	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(result.TraceHash, opts.ArtifactKeyOpts(format))
		r.set(ctx, "artifact", key, data, cache.TTLArtifact)
	}
	return result, nil
}

// Layout loads and lays out a trace without rendering or caching.
func (r *Runner) Layout(ctx context.Context, opts Options) (*trace.Trace, *timeline.Layout, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, nil, err
	}
	var stats Stats
	return r.layout(ctx, opts, &stats)
}

// Stats returns the summary of a trace, cached under [cache.Keyer.StatsKey].
func (r *Runner) Stats(ctx context.Context, opts Options) (*Summary, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	key := r.Keyer.StatsKey(cache.Hash(opts.Trace), opts.LayoutKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var s Summary
			if err := json.Unmarshal(data, &s); err == nil {
				observability.Cache().OnCacheHit(ctx, "stats")
				s.Source = opts.Source
				return &s, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "stats")
	}

	var stats Stats
	tr, l, err := r.layout(ctx, opts, &stats)
	if err != nil {
		return nil, false, err
	}
	s := Summarize(opts.Source, tr, l)
	if data, err := json.Marshal(s); err == nil {
		r.set(ctx, "stats", key, data, cache.TTLStats)
	}
	return s, false, nil
}

func (r *Runner) layout(ctx context.Context, opts Options, stats *Stats) (*trace.Trace, *timeline.Layout, error) {
	hooks := observability.Pipeline()

	hooks.OnLoadStart(ctx, opts.Source)
	start := time.Now()
	tr, err := LoadTrace(opts)
	var rules *roles.Rules
	if err == nil {
		rules, err = LoadRules(opts)
	}
	stats.LoadTime = time.Since(start)
	if tr != nil {
		stats.EventCount = len(tr.Events)
	}
	hooks.OnLoadComplete(ctx, opts.Source, stats.EventCount, stats.LoadTime, err)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	r.Logger.Info("loaded trace",
		"source", opts.Source,
		"shape", tr.Shape,
		"events", len(tr.Events),
		"skipped", tr.Skipped,
		"duration", stats.LoadTime)

	hooks.OnLayoutStart(ctx, len(tr.Events))
	start = time.Now()
	l, err := BuildLayout(tr, rules, opts)
	stats.LayoutTime = time.Since(start)
	if l != nil {
		stats.ContainerCount = len(l.Containers)
	}
	hooks.OnLayoutComplete(ctx, stats.ContainerCount, stats.LayoutTime, err)
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	r.Logger.Info("computed layout",
		"containers", len(l.Containers),
		"scopes", len(l.Scopes),
		"warnings", l.Warnings,
		"duration", stats.LayoutTime)
	return tr, l, nil
}

// cachedArtifacts returns the requested artifacts when all of them are
// cached.
func (r *Runner) cachedArtifacts(ctx context.Context, traceHash string, opts Options) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(traceHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		if !hit {
			observability.Cache().OnCacheMiss(ctx, "artifact")
			return nil, false
		}
		observability.Cache().OnCacheHit(ctx, "artifact")
		artifacts[format] = data
	}
	return artifacts, true
}

func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
