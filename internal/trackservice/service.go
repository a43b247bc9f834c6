// Package trackservice is the application layer shared by the HTTP API,
// the MCP server and the CLI.
package trackservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/extract"
	"github.com/starford/tonearm/internal/housekeeping"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/storage"
)

// Counter reports how many documents the index holds.
type Counter interface {
	Count() (uint64, error)
}

// Status summarizes the index and its housekeeping state.
type Status struct {
	Documents        uint64       `json:"documents"`
	Version          string       `json:"version"`
	LastIndexed      *time.Time   `json:"last_indexed,omitempty"`
	ReindexRequested bool         `json:"reindex_requested"`
	Crawl            *CrawlStatus `json:"crawl,omitempty"`
	// IndexError is set when the document count could not be read.
	IndexError string `json:"index_error,omitempty"`
}

// CrawlStatus describes the most recent crawl task.
type CrawlStatus struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Running   bool          `json:"running"`
	Report    *index.Report `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Resolver re-derives tracks from disk and knows which files are audio.
type Resolver interface {
	search.Resolver
	Supported(path string) bool
}

// Service coordinates search, track lookup and housekeeping.
type Service struct {
	store    storage.Provider
	idx      Counter
	searcher *search.Searcher
	resolver Resolver
	policy   *housekeeping.Policy

	mu   sync.Mutex
	task *index.Task
}

// NewService creates a new track service.
func NewService(store storage.Provider, idx Counter, searcher *search.Searcher, resolver Resolver, policy *housekeeping.Policy) *Service {
	return &Service{store: store, idx: idx, searcher: searcher, resolver: resolver, policy: policy}
}

// Search validates req and runs it.
func (s *Service) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return s.searcher.Search(ctx, req)
}

// GetTrack reads the track at a library-relative path straight from disk.
// A file that is gone or unreadable yields the missing-track sentinel.
func (s *Service) GetTrack(_ context.Context, path string) (models.Track, error) {
	abs, err := s.store.Resolve(path)
	if err != nil {
		return models.Track{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	t, err := s.resolver.Extract(abs)
	if errors.Is(err, extract.ErrUnsupported) {
		return models.Track{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err != nil {
		return models.Missing(), nil
	}
	return *t, nil
}

// OpenAudio opens the supported library file at path for streaming. The
// caller closes the file. Missing and non-regular files are ErrNotFound.
func (s *Service) OpenAudio(_ context.Context, path string) (*os.File, fs.FileInfo, error) {
	abs, err := s.store.Resolve(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if !s.resolver.Supported(abs) {
		return nil, nil, fmt.Errorf("%w: not an audio file: %s", apperr.ErrInvalidInput, path)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	return f, fi, nil
}

// RequestReindex flags the index for a clear and full crawl on next start.
func (s *Service) RequestReindex(ctx context.Context) error {
	return s.policy.RequestReindex(ctx)
}

// TrackCrawl records t as the current crawl for status reporting.
func (s *Service) TrackCrawl(t *index.Task) {
	s.mu.Lock()
	s.task = t
	s.mu.Unlock()
}

// Status reports document count, stored state and the latest crawl.
// Without a Counter the count is reported as zero.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	var n uint64
	if s.idx != nil {
		var err error
		if n, err = s.idx.Count(); err != nil {
			return nil, err
		}
	}
	st, err := s.policy.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := &Status{
		Documents:        n,
		Version:          st.Version,
		LastIndexed:      st.LastIndexed,
		ReindexRequested: st.ReindexRequested,
	}

	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		cs := &CrawlStatus{ID: task.ID, StartedAt: task.StartedAt, Running: task.Running()}
		if !cs.Running {
			rep, err := task.Wait()
			cs.Report = &rep
			if err != nil {
				cs.Error = err.Error()
			}
		}
		out.Crawl = cs
	}
	return out, nil
}
