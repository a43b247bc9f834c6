package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/storage"
)

// Extractor produces Tracks from files.
type Extractor interface {
	Supported(path string) bool
	Extract(path string) (*models.Track, error)
}

// OnExisting selects what ingestion does with a path that is already indexed.
type OnExisting string

const (
	// SkipExisting leaves indexed documents untouched.
	SkipExisting OnExisting = "skip"
	// ReplaceExisting re-adds a document when the file's mtime changed.
	ReplaceExisting OnExisting = "replace"
)

// Outcome describes what ingesting one path did.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeAdded
	OutcomeReplaced
	OutcomeSkipped
)

// Report summarizes a crawl.
type Report struct {
	Candidates int           `json:"candidates"`
	Added      int           `json:"added"`
	Replaced   int           `json:"replaced"`
	Skipped    int           `json:"skipped"`
	Failed     []string      `json:"failed"`
	Committed  int           `json:"committed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Crawler feeds library files through the extractor into the index.
type Crawler struct {
	idx        TrackIndex
	store      storage.Provider
	ext        Extractor
	logger     *slog.Logger
	workers    int
	onExisting OnExisting
}

// DefaultWorkers is the extraction concurrency when none is configured.
const DefaultWorkers = 4

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithWorkers sets how many files are extracted concurrently.
func WithWorkers(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithOnExisting sets the policy for already indexed paths.
func WithOnExisting(p OnExisting) CrawlerOption {
	return func(c *Crawler) {
		if p != "" {
			c.onExisting = p
		}
	}
}

// NewCrawler creates a Crawler over store.
func NewCrawler(idx TrackIndex, store storage.Provider, ext Extractor, logger *slog.Logger, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		idx:        idx,
		store:      store,
		ext:        ext,
		logger:     logger,
		workers:    DefaultWorkers,
		onExisting: SkipExisting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl walks the whole library, ingests every supported file and commits
// once at the end. Per-file failures are collected in the report; only
// listing and index errors are returned.
func (c *Crawler) Crawl() (Report, error) {
	start := time.Now()
	rep := Report{Failed: []string{}}

	files, err := c.store.List("")
	if err != nil {
		return rep, fmt.Errorf("crawl: list library: %w", err)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.workers)

	for _, f := range files {
		if !c.ext.Supported(f.AbsPath) {
			continue
		}
		rep.Candidates++
		path := f.AbsPath
		g.Go(func() error {
			out, err := c.Ingest(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			switch out {
			case OutcomeAdded:
				rep.Added++
			case OutcomeReplaced:
				rep.Replaced++
			case OutcomeSkipped:
				rep.Skipped++
			case OutcomeFailed:
				rep.Failed = append(rep.Failed, path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	n, err := c.idx.Commit()
	if err != nil {
		return rep, err
	}
	rep.Committed = n
	sort.Strings(rep.Failed)
	rep.Elapsed = time.Since(start)

	for _, p := range rep.Failed {
		c.logger.Warn("crawl: failed to extract", slog.String("path", p))
	}
	c.logger.Info("crawl: finished",
		slog.Int("candidates", rep.Candidates),
		slog.Int("added", rep.Added),
		slog.Int("replaced", rep.Replaced),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", len(rep.Failed)),
		slog.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

// Ingest extracts path and queues it unless it is already indexed. The
// caller commits. Extraction failures are reported as OutcomeFailed with a
// nil error; index failures are returned.
func (c *Crawler) Ingest(path string) (Outcome, error) {
	t, err := c.ext.Extract(path)
	if err != nil {
		c.logger.Debug("crawl: extract failed", slog.String("path", path), slog.String("error", err.Error()))
		return OutcomeFailed, nil
	}

	if c.onExisting == ReplaceExisting {
		mtime, found, err := c.idx.StoredModifiedAt(t.AbsolutePath)
		if err != nil {
			return OutcomeFailed, err
		}
		if found {
			if mtime == t.ModifiedAt {
				return OutcomeSkipped, nil
			}
			if err := c.idx.Replace(*t); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeReplaced, nil
		}
	}

	added, err := c.idx.Add(*t)
	if err != nil {
		return OutcomeFailed, err
	}
	if !added {
		return OutcomeSkipped, nil
	}
	return OutcomeAdded, nil
}
