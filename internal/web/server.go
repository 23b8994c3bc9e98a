package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/mnemo/internal/logging"
	"github.com/hpungsan/mnemo/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// sweepInterval is how often idle sessions are evicted while serving.
const sweepInterval = time.Minute

// NewRouter builds the HTTP handler for the JSON API, reveal stream and card pages.
func NewRouter(app *ops.App, version string) http.Handler {
	templateSub := mustSub(templateFS, "templates")
	staticSub := mustSub(staticFS, "static")

	logger := logging.OrDiscard(app.Logger)
	h := &Handlers{
		app:         app,
		renderer:    NewRenderer(templateSub, version, logger),
		logger:      logger,
		revealDelay: app.Config.RevealDelay(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusFound)
	})
	r.Get("/health", h.HandleHealth)
	r.Get("/sessions/{id}/card", h.HandleCard)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.HandleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)
			r.Get("/reveal", h.HandleReveal)
			r.Post("/convert", h.HandleConvert)
			r.Post("/regenerate", h.HandleRegenerate)
			r.Post("/reset", h.HandleReset)
			r.Post("/lock-all", h.HandleLockAll)
			r.Post("/unlock-all", h.HandleUnlockAll)
			r.Route("/slots/{index}", func(r chi.Router) {
				r.Post("/lock", h.HandleSlotLock)
				r.Post("/unlock", h.HandleSlotUnlock)
				r.Post("/toggle", h.HandleSlotToggle)
				r.Post("/select", h.HandleSlotSelect)
				r.Post("/override", h.HandleSlotOverride)
			})
		})
		r.Post("/pin", h.HandlePin)
		r.Get("/lookup", h.HandleLookup)
		r.Get("/digits", h.HandleDigits)
		r.Get("/alphabet", h.HandleAlphabet)
	})

	return r
}

// NewServer creates the HTTP server for the local mnemo API.
func NewServer(app *ops.App, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewRouter(app, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("web: sub-FS %q: %v", dir, err))
	}
	return sub
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Run starts the HTTP server, evicts idle sessions while it runs, and shuts
// down gracefully on SIGINT/SIGTERM or when ctx ends.
func Run(ctx context.Context, srv *http.Server, app *ops.App) error {
	logger := logging.OrDiscard(app.Logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.Sessions.RunSweeper(ctx, sweepInterval, app.Config.SessionTTL())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("mnemo API running", "addr", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
