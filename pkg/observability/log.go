package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports every event to a logger at debug level, and failures at
// error level. It implements all three hook interfaces.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that write to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// Register installs h for the pipeline, cache and HTTP events.
func (h *LogHooks) Register() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) done(msg string, err error, keyvals ...any) {
	if err != nil {
		h.logger.Error(msg+" failed", append(keyvals, "err", err)...)
		return
	}
	h.logger.Debug(msg, keyvals...)
}

func (h *LogHooks) OnLoadStart(_ context.Context, source string) {
	h.logger.Debug("loading trace", "source", source)
}

func (h *LogHooks) OnLoadComplete(_ context.Context, source string, eventCount int, d time.Duration, err error) {
	h.done("loaded trace", err, "source", source, "events", eventCount, "duration", d)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, eventCount int) {
	h.logger.Debug("computing layout", "events", eventCount)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, containerCount int, d time.Duration, err error) {
	h.done("computed layout", err, "containers", containerCount, "duration", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("rendering", "formats", formats)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.done("rendered", err, "formats", formats, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("response", "method", method, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, path string, err error) {
	h.logger.Error("request failed", "method", method, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
