// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tonearm/internal/api"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/mcpserver"
	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/sse"
	"github.com/starford/tonearm/internal/trackservice"
)

// prepare applies opts and configures logging.
func prepare(opts []Option) (*Config, *slog.Logger, func(), error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, nil, fmt.Errorf("config is required")
	}
	logger, closeLog := newLogger(app.config.App, app.logOutput)
	return app.config, logger, closeLog, nil
}

// setup prepares logging and wires the components in the given mode.
func setup(ctx context.Context, opts []Option, mode buildMode) (*components, *Config, func(), error) {
	cfg, logger, closeLog, err := prepare(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_root", cfg.Library.Root),
		slog.String("cache_dir", cfg.Cache.Dir),
		slog.String("state_driver", cfg.State.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	comp, err := build(ctx, cfg, logger, mode)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return comp, cfg, func() {
		comp.close()
		closeLog()
	}, nil
}

// Run starts the HTTP server, the initial crawl when housekeeping asks for
// one, and the library watcher.
func Run(ctx context.Context, opts ...Option) error {
	comp, cfg, cleanup, err := setup(ctx, opts, modeWrite)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := comp.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(comp.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	var ready atomic.Bool

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// The crawl and the watcher share the index batch, so the watcher only
	// starts once the crawl has committed.
	g.Go(func() error {
		if comp.decision.FullCrawl {
			rep, err := comp.crawl(gCtx)
			switch {
			case gCtx.Err() != nil:
				return nil
			case err != nil:
				logger.Warn("initial crawl failed", slog.String("error", err.Error()))
			default:
				broker.PublishCrawlCompleted(rep)
			}
		}
		ready.Store(true)

		if err := index.Watch(gCtx, comp.crawler, cfg.Library.Root, cfg.Index.CommitDelay, logger, broker.PublishTrackEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblocks the watcher.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// Crawl applies the start-up policy, then runs one synchronous full crawl
// regardless of its decision and returns the report.
func Crawl(ctx context.Context, opts ...Option) (index.Report, error) {
	comp, _, cleanup, err := setup(ctx, opts, modeWrite)
	if err != nil {
		return index.Report{}, err
	}
	defer cleanup()
	return comp.crawl(ctx)
}

// Search runs req against a read-only view of the index. Stored state is
// left untouched.
func Search(ctx context.Context, req search.Request, opts ...Option) (*search.Response, error) {
	comp, _, cleanup, err := setup(ctx, opts, modeRead)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return comp.svc.Search(ctx, req)
}

// Status reports the stored housekeeping state. The document count is
// included when the index can be opened read-only.
func Status(ctx context.Context, opts ...Option) (*trackservice.Status, error) {
	cfg, logger, closeLog, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	defer closeLog()

	state, err := openState(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}
	defer state.Close()

	var (
		counter trackservice.Counter
		idxErr  string
	)
	idx, err := index.OpenReadOnly(cfg.Cache.IndexDir(), readLockTimeout, logger)
	switch {
	case err == nil:
		defer idx.Close()
		counter = idx
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
	default:
		logger.Warn("status: index unavailable", slog.String("error", err.Error()))
		idxErr = err.Error()
	}

	st, err := trackservice.NewService(nil, counter, nil, nil, newPolicy(state, cfg, logger)).Status(ctx)
	if err != nil {
		return nil, err
	}
	st.IndexError = idxErr
	return st, nil
}

// RequestReindex sets the reindex flag without opening the index.
func RequestReindex(ctx context.Context, opts ...Option) error {
	cfg, logger, closeLog, err := prepare(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	state, err := openState(ctx, cfg.State)
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}
	defer state.Close()
	return newPolicy(state, cfg, logger).RequestReindex(ctx)
}

// ServeMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol. A crawl requested by housekeeping runs first.
func ServeMCP(ctx context.Context, opts ...Option) error {
	opts = append(opts, WithLogOutput(os.Stderr))
	comp, _, cleanup, err := setup(ctx, opts, modeWrite)
	if err != nil {
		return err
	}
	defer cleanup()

	if comp.decision.FullCrawl {
		if _, err := comp.crawl(ctx); err != nil {
			comp.logger.Warn("initial crawl failed", slog.String("error", err.Error()))
		}
	}
	return mcpserver.New(comp.svc, comp.library, comp.ext.Supported, Version).ServeStdio()
}
