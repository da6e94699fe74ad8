// Package server exposes the transformation pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz        liveness probe
//	GET  /v1/passes      known passes with descriptions and default order
//	POST /v1/transform   run passes over a JSON graph; returns {graph, report}
//	POST /v1/render      draw a JSON graph as dot, svg or png
//
// Transform options come from the query string (passes, skip_validate,
// skip_cleanup, refresh) on top of the server's configured defaults.
// Errors are returned as {"code": ..., "error": ...} with a status derived
// from the error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	codes "github.com/sadolini/openvino/pkg/errors"
	graphio "github.com/sadolini/openvino/pkg/io"
	"github.com/sadolini/openvino/pkg/observability"
	"github.com/sadolini/openvino/pkg/pipeline"
	"github.com/sadolini/openvino/pkg/render/dot"
)

// maxBodySize bounds uploaded graph documents.
const maxBodySize = 32 << 20

// Server holds the chi router and the runner shared by all requests.
type Server struct {
	router   chi.Router
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
}

// New creates a Server. defaults seeds the options of every transform
// request.
func New(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = runner.Logger
	}
	s := &Server{runner: runner, defaults: defaults, logger: logger}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/passes", s.handlePasses)
		r.Post("/transform", s.handleTransform)
		r.Post("/render", s.handleRender)
	})

	return r
}

// instrument reports every request to the HTTP hooks and the logger.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type passInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// handlePasses lists the known passes.
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	order := s.defaults.Passes
	if len(order) == 0 {
		order = pipeline.DefaultPasses
	}
	inDefault := map[string]bool{}
	for _, name := range order {
		inDefault[name] = true
	}
	var out []passInfo
	for _, name := range pipeline.KnownPasses() {
		out = append(out, passInfo{Name: name, Description: pipeline.PassDescription[name], Default: inDefault[name]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"passes": out, "order": order})
}

type transformResponse struct {
	Graph  json.RawMessage  `json:"graph"`
	Report *pipeline.Result `json:"report"`
}

// handleTransform runs the pipeline over the posted graph.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	g, err := graphio.ReadJSON(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.runner.Execute(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := graphio.MarshalJSON(result.Graph)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transformResponse{Graph: out, Report: result})
}

var contentTypes = map[string]string{
	pipeline.FormatDOT:    "text/vnd.graphviz",
	string(dot.FormatSVG): "image/svg+xml",
	string(dot.FormatPNG): "image/png",
}

// handleRender draws the posted graph.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = string(dot.FormatSVG)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	g, err := graphio.ReadJSON(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, cached, err := s.runner.Render(r.Context(), g, format, dot.Options{
		ShowAttrs:  queryBool(q.Get("show_attrs")),
		ShowIDs:    queryBool(q.Get("show_ids")),
		HideConsts: queryBool(q.Get("hide_consts")),
		RankDir:    q.Get("rankdir"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", "miss")
	if cached {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// options builds the run options for r from the server defaults and the
// query string.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Logger = s.logger
	q := r.URL.Query()
	if v := q.Get("passes"); v != "" {
		opts.Passes = splitList(v)
	}
	for key, dst := range map[string]*bool{
		"skip_validate": &opts.SkipValidate,
		"skip_cleanup":  &opts.SkipCleanup,
		"refresh":       &opts.Refresh,
	} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, codes.New(codes.ErrCodeInvalidInput, "query parameter %s=%q is not a boolean", key, v)
		}
		*dst = b
	}
	return opts, nil
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = codes.Wrap(codes.ErrCodeInvalidInput, err, "request body too large")
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", r.URL.Path, "err", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	writeJSON(w, status, errorResponse{
		Code:  string(codes.GetCodeOr(err, codes.ErrCodeInternal)),
		Error: codes.UserMessage(err),
	})
}

// statusFor maps an error code onto an HTTP status.
func statusFor(err error) int {
	switch codes.GetCodeOr(err, codes.ErrCodeInternal) {
	case codes.ErrCodeInvalidInput, codes.ErrCodeInvalidPattern:
		return http.StatusBadRequest
	case codes.ErrCodeMissingAttribute, codes.ErrCodeAttributeType, codes.ErrCodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case codes.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case codes.ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
