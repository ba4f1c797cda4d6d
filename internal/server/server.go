// Package server exposes pkgscope analyses over HTTP.
//
// Routes:
//
//	GET /healthz
//	GET /api/install-size?name=<pkg>[&version=<range>][&refresh=1]
//	GET /api/vulnerabilities?name=<pkg>[&version=<range>][&refresh=1]
//	GET /api/graph?name=<pkg>[&version=<range>][&format=json|dot|svg]
//	GET /api/reports[?name=<pkg>][&limit=<n>]
//
// Report responses carry an X-Cache header (hit, miss or stale). Errors are
// JSON objects with a machine-readable code and a message; invalid input
// maps to 400.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pkgscope/pkg/analysis"
	"github.com/matzehuels/pkgscope/pkg/buildinfo"
	"github.com/matzehuels/pkgscope/pkg/deps"
	pserrors "github.com/matzehuels/pkgscope/pkg/errors"
	"github.com/matzehuels/pkgscope/pkg/pipeline"
	"github.com/matzehuels/pkgscope/pkg/render/nodelink"
	"github.com/matzehuels/pkgscope/pkg/storage"
)

// DefaultVersion is used when a request names no version.
const DefaultVersion = "latest"

const (
	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Service computes the reports served by the API. *pipeline.Runner
// satisfies it.
type Service interface {
	InstallSize(ctx context.Context, name, version string, refresh bool) (*pipeline.Result[*analysis.InstallSizeResult], error)
	Vulnerabilities(ctx context.Context, name, version string, refresh bool) (*pipeline.Result[*analysis.VulnerabilityTreeResult], error)
	Graph(ctx context.Context, name, version string, refresh bool) (*deps.Graph, error)
	RecentReports(ctx context.Context, pkg string, limit int) ([]*storage.Report, error)
}

// Server routes API requests to a Service.
type Server struct {
	svc    Service
	logger *log.Logger
	router chi.Router
}

// New creates a server backed by svc.
func New(svc Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{svc: svc, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/install-size", s.handleInstallSize)
		r.Get("/vulnerabilities", s.handleVulnerabilities)
		r.Get("/graph", s.handleGraph)
		r.Get("/reports", s.handleReports)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleInstallSize(w http.ResponseWriter, r *http.Request) {
	name, version, ok := packageParams(w, r)
	if !ok {
		return
	}
	res, err := s.svc.InstallSize(r.Context(), name, version, refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Cache", res.Status())
	writeJSON(w, http.StatusOK, res.Value)
}

func (s *Server) handleVulnerabilities(w http.ResponseWriter, r *http.Request) {
	name, version, ok := packageParams(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Vulnerabilities(r.Context(), name, version, refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Cache", res.Status())
	writeJSON(w, http.StatusOK, res.Value)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	name, version, ok := packageParams(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.svc.Graph(r.Context(), name, version, refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case pipeline.FormatDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		_, _ = w.Write([]byte(nodelink.ToDOT(g, nodelink.Options{Detailed: true})))
	case pipeline.FormatSVG:
		svg, err := nodelink.RenderSVG(r.Context(), nodelink.ToDOT(g, nodelink.Options{Detailed: true}))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		writeJSON(w, http.StatusOK, g)
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name != "" {
		if err := pserrors.ValidateNpmPackageName(name); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, pserrors.New(pserrors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	reports, err := s.svc.RecentReports(r.Context(), name, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// packageParams reads name and version, writing a 400 when name is absent.
func packageParams(w http.ResponseWriter, r *http.Request) (name, version string, ok bool) {
	q := r.URL.Query()
	name = q.Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    string(pserrors.ErrCodeInvalidInput),
			Message: "missing required query parameter: name",
		})
		return "", "", false
	}
	version = q.Get("version")
	if version == "" {
		version = DefaultVersion
	}
	return name, version, true
}

func refreshParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return v
}
