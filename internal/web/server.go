package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cassettes/internal/catalog"
)

//go:embed templates/*.html templates/*.md
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures the web server.
type Options struct {
	Version string
	Bind    string
	Port    int
	Logger  zerolog.Logger
}

// NewServer creates the HTTP server for the catalog UI.
func NewServer(cat *catalog.Catalog, opts Options) (*http.Server, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	renderer, err := NewRenderer(templateSub, opts.Version)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		catalog:  cat,
		renderer: renderer,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           h.Routes(staticSub, opts.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Routes returns the full handler tree including middleware.
func (h *Handlers) Routes(static fs.FS, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tapes", http.StatusFound)
	})
	mux.HandleFunc("GET /tapes", h.HandleList)
	mux.HandleFunc("GET /tapes/new", h.HandleNew)
	mux.HandleFunc("POST /tapes", h.HandleCreate)
	mux.HandleFunc("GET /tapes/{id}", h.HandleEdit)
	mux.HandleFunc("POST /tapes/{id}", h.HandleSave)
	mux.HandleFunc("POST /tapes/{id}/delete", h.HandleDelete)
	mux.HandleFunc("DELETE /tapes/{id}", h.HandleDelete)
	mux.HandleFunc("GET /help", h.HandleHelp)

	if static != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	// Form posts mutate the catalog, so requests from other sites are
	// refused with 403 before they reach a handler.
	return chain(mux,
		requestID,
		accessLog(logger.With().Str("component", "web").Logger()),
		recovery,
		securityHeaders,
		http.NewCrossOriginProtection().Handler,
	)
}

// Run serves until ctx ends or SIGINT/SIGTERM arrives, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", "http://"+srv.Addr).Msg("catalog UI running")
	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, "[::]:") || strings.HasPrefix(srv.Addr, ":") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
