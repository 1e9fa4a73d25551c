// Package server is the web front end: an upload form, the result page of a
// run, and downloads of the files a run produced.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/logging"
	"github.com/KaramelBytes/edaloom/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// DefaultUploadLimit bounds the multipart body when Options leaves it unset.
const DefaultUploadLimit = 32 << 20

// Options configures a Server.
type Options struct {
	// UploadLimit is the largest accepted request body in bytes.
	UploadLimit int64
	// Defaults seeds the form checkboxes. Insights also gates the model call.
	Defaults pipeline.Options
	// RecentRuns is how many runs the index lists.
	RecentRuns int
	Logger     *zap.Logger
}

// Server serves the web UI for one Pipeline.
type Server struct {
	p      *pipeline.Pipeline
	opt    Options
	pages  map[string]*template.Template
	router *mux.Router
	log    *zap.Logger
}

// New parses the templates and builds the routes.
func New(p *pipeline.Pipeline, opt Options) (*Server, error) {
	if opt.UploadLimit <= 0 {
		opt.UploadLimit = DefaultUploadLimit
	}
	if opt.RecentRuns <= 0 {
		opt.RecentRuns = 20
	}
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"since":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"duration": func(d time.Duration) string { return d.Round(100 * time.Millisecond).String() },
	}
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}
	pageNames := []string{"index.html", "result.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{p: p, opt: opt, pages: pages, router: mux.NewRouter(), log: logging.OrNop(opt.Logger)}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/{id}", s.handleRun).Methods(http.MethodGet)
	s.router.HandleFunc("/runs/{id}/files/{name}", s.handleFile).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusNotFound, "Page not found.")
	})
}

// Handler returns the router wrapped in the recovery and request-logging middleware.
func (s *Server) Handler() http.Handler {
	std := zap.NewStdLog(s.log.Named("http"))
	rec := negroni.NewRecovery()
	rec.Logger = std
	rec.PrintStack = false
	lg := negroni.NewLogger()
	lg.ALogger = std

	n := negroni.New()
	n.Use(rec)
	n.Use(lg)
	n.UseHandler(s.router)
	return n
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. writeTimeout must cover a full analysis including the model call.
func (s *Server) ListenAndServe(ctx context.Context, addr string, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server listening", zap.String("url", "http://"+addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "error.html", map[string]any{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": msg,
	})
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}
