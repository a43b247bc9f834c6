package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/tonearm/internal/extract"
	"github.com/starford/tonearm/internal/housekeeping"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/storage"
	"github.com/starford/tonearm/internal/trackservice"
)

// Version is recorded in the state store; a change clears the index on
// the next start. Set at build time with -ldflags.
var Version = "0.1.0"

// readLockTimeout bounds how long read-only commands wait for a running
// server to release the index.
const readLockTimeout = 2 * time.Second

// buildMode selects how build treats housekeeping and the index.
type buildMode int

const (
	// modeWrite runs the start-up policy and opens the index for writing.
	modeWrite buildMode = iota
	// modeRead leaves state untouched and opens the index read-only.
	modeRead
)

// components is the wired object graph shared by every entry point.
type components struct {
	logger   *slog.Logger
	state    housekeeping.Store
	policy   *housekeeping.Policy
	decision housekeeping.Decision
	idx      *index.Index
	ext      *extract.Extractor
	library  storage.Provider
	crawler  *index.Crawler
	svc      *trackservice.Service
}

func openState(ctx context.Context, cfg StateConfig) (housekeeping.Store, error) {
	switch cfg.Driver {
	case StateDriverRedis:
		return housekeeping.OpenRedis(ctx, housekeeping.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
	default:
		return housekeeping.OpenSQLite(cfg.SQLite.Path)
	}
}

// build opens state and the index. In modeWrite the start-up policy runs
// first since it may remove the index directory.
func build(ctx context.Context, cfg *Config, logger *slog.Logger, mode buildMode) (*components, error) {
	c := &components{logger: logger}

	state, err := openState(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}
	c.state = state

	c.policy = newPolicy(state, cfg, logger)

	if mode == modeRead {
		c.idx, err = index.OpenReadOnly(cfg.Cache.IndexDir(), readLockTimeout, logger)
	} else {
		if c.decision, err = c.policy.Run(ctx); err != nil {
			c.close()
			return nil, fmt.Errorf("housekeeping: %w", err)
		}
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			c.close()
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		c.idx, err = index.Open(cfg.Cache.IndexDir(), logger)
	}
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	if c.library, err = storage.NewFS(cfg.Library.Root); err != nil {
		c.close()
		return nil, fmt.Errorf("init library: %w", err)
	}

	extOpts := []extract.Option{extract.WithLogger(logger)}
	if len(cfg.Library.Extensions) > 0 {
		extOpts = append(extOpts, extract.WithExtensions(cfg.Library.Extensions...))
	}
	c.ext = extract.New(extOpts...)
	c.crawler = index.NewCrawler(c.idx, c.library, c.ext, logger,
		index.WithWorkers(cfg.Index.Workers),
		index.WithOnExisting(index.OnExisting(cfg.Index.OnExisting)),
	)
	c.svc = trackservice.NewService(c.library, c.idx, search.New(c.idx, c.ext, logger), c.ext, c.policy)
	return c, nil
}

func newPolicy(state housekeeping.Store, cfg *Config, logger *slog.Logger) *housekeeping.Policy {
	return housekeeping.NewPolicy(state, cfg.Cache.IndexDir(), Version, logger,
		housekeeping.WithStaleAfter(cfg.Index.StaleAfter))
}

// crawl runs a full crawl and records its completion. It stops waiting
// when ctx is done.
func (c *components) crawl(ctx context.Context) (index.Report, error) {
	task := c.crawler.Start()
	c.svc.TrackCrawl(task)
	select {
	case <-task.Done():
	case <-ctx.Done():
		return index.Report{}, ctx.Err()
	}
	rep, err := task.Wait()
	if err != nil {
		return rep, err
	}
	if err := c.policy.MarkIndexed(ctx); err != nil {
		return rep, err
	}
	return rep, nil
}

func (c *components) close() {
	if c.idx != nil {
		if err := c.idx.Close(); err != nil {
			c.logger.Warn("close index failed", slog.String("error", err.Error()))
		}
	}
	if c.state != nil {
		if err := c.state.Close(); err != nil {
			c.logger.Warn("close state failed", slog.String("error", err.Error()))
		}
	}
}
