package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/memtower/pkg/buildinfo"
	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/observability"
	"github.com/matzehuels/memtower/pkg/pipeline"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatPNG:    "image/png",
	pipeline.FormatPDF:    "application/pdf",
	pipeline.FormatJSON:   "application/json",
	pipeline.FormatDOT:    "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatScopes: "image/svg+xml",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, pipeline.FormatJSON)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, chi.URLParam(r, "format"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, format string) {
	opts, err := s.options(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	setCacheHeader(w, result.CacheInfo.RenderHit)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, hit, err := s.runner.Stats(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)
	writeJSON(w, http.StatusOK, summary)
}

// options reads the body and the query into pipeline options.
func (s *Server) options(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return pipeline.Options{}, errTooLarge{limit: tooLarge.Limit}
		}
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}

	q := r.URL.Query()
	opts := pipeline.Options{
		Source:        q.Get("source"),
		Trace:         body,
		Shape:         q.Get("shape"),
		Rules:         s.rules,
		RulesFormat:   s.rulesFormat,
		CaseSensitive: s.cfg.CaseSensitive,
		Logger:        s.logger,
	}

	floats := map[string]*float64{
		"target_width": &opts.TargetWidth,
		"height_cap":   &opts.HeightCap,
		"scale":        &opts.Scale,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "query parameter %s", name)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"case_sensitive": &opts.CaseSensitive,
		"tooltips":       &opts.Tooltips,
		"no_accesses":    &opts.NoAccesses,
		"no_polygon":     &opts.NoPolygon,
		"no_stats":       &opts.NoStats,
		"detailed":       &opts.Detailed,
		"refresh":        &opts.Refresh,
	}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "query parameter %s", name)
			}
			*dst = b
		}
	}
	return opts, nil
}

type errTooLarge struct{ limit int64 }

func (e errTooLarge) Error() string {
	return "request body exceeds " + strconv.FormatInt(e.limit, 10) + " bytes"
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)

	var tooLarge errTooLarge
	switch {
	case stderrors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Code: string(errors.ErrCodeInvalidInput), Message: err.Error()})
		return
	case errors.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)})
		return
	}
	switch {
	case errors.GetCode(err) == errors.ErrCodeTimeout, stderrors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("request timed out", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Code: string(errors.ErrCodeTimeout), Message: "timed out"})
		return
	case errors.GetCode(err) == errors.ErrCodeNetwork:
		s.logger.Warn("backend unavailable", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: string(errors.ErrCodeNetwork), Message: "backend unavailable"})
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: string(code), Message: "internal error"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Code: string(errors.ErrCodeNotFound), Message: "no route for " + r.URL.Path})
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
