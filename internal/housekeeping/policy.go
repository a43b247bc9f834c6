package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// DefaultStaleAfter is how old the last full crawl may get before start-up
// schedules another one.
const DefaultStaleAfter = 30 * 24 * time.Hour

// Decision is the outcome of the start-up check.
type Decision struct {
	FullCrawl bool   `json:"full_crawl"`
	Cleared   bool   `json:"cleared"`
	Reason    string `json:"reason"`
}

// Reasons reported in a Decision.
const (
	ReasonReindexRequested = "reindex requested"
	ReasonVersionChanged   = "version changed"
	ReasonNeverIndexed     = "never indexed"
	ReasonStale            = "index stale"
	ReasonFresh            = "index fresh"
)

// State is a snapshot of the stored keys.
type State struct {
	Version          string     `json:"version"`
	LastIndexed      *time.Time `json:"last_indexed,omitempty"`
	ReindexRequested bool       `json:"reindex_requested"`
}

// Policy decides between a full crawl and watch-only start-up.
type Policy struct {
	store      Store
	indexDir   string
	version    string
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithStaleAfter overrides DefaultStaleAfter. Non-positive values are ignored.
func WithStaleAfter(d time.Duration) PolicyOption {
	return func(p *Policy) {
		if d > 0 {
			p.staleAfter = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) { p.now = now }
}

// NewPolicy creates a Policy. indexDir is removed when the index is cleared.
func NewPolicy(store Store, indexDir, version string, logger *slog.Logger, opts ...PolicyOption) *Policy {
	p := &Policy{
		store:      store,
		indexDir:   indexDir,
		version:    version,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run applies the start-up rules in order. It must run before the index
// is opened because clearing removes the index directory.
func (p *Policy) Run(ctx context.Context) (Decision, error) {
	d, err := p.decide(ctx)
	if err != nil {
		return Decision{}, err
	}
	if d.Cleared {
		if err := p.clear(ctx); err != nil {
			return Decision{}, err
		}
	}
	p.logger.Info("housekeeping: start-up decision",
		slog.Bool("full_crawl", d.FullCrawl),
		slog.Bool("cleared", d.Cleared),
		slog.String("reason", d.Reason))
	return d, nil
}

func (p *Policy) decide(ctx context.Context) (Decision, error) {
	if _, ok, err := p.store.Get(ctx, KeyReindex); err != nil {
		return Decision{}, err
	} else if ok {
		return Decision{FullCrawl: true, Cleared: true, Reason: ReasonReindexRequested}, nil
	}

	v, ok, err := p.store.Get(ctx, KeyVersion)
	if err != nil {
		return Decision{}, err
	}
	if !ok || v != p.version {
		return Decision{FullCrawl: true, Cleared: true, Reason: ReasonVersionChanged}, nil
	}

	last, ok, err := p.lastIndexed(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{FullCrawl: true, Reason: ReasonNeverIndexed}, nil
	}
	if p.now().Sub(last) > p.staleAfter {
		return Decision{FullCrawl: true, Reason: ReasonStale}, nil
	}
	return Decision{Reason: ReasonFresh}, nil
}

// clear drops the index data and all state, then records the current
// version so the next start does not clear again.
func (p *Policy) clear(ctx context.Context) error {
	if err := os.RemoveAll(p.indexDir); err != nil {
		return fmt.Errorf("housekeeping: remove index dir: %w", err)
	}
	if err := p.store.Clear(ctx); err != nil {
		return err
	}
	return p.store.Put(ctx, KeyVersion, p.version)
}

// MarkIndexed records the completion of a full crawl.
func (p *Policy) MarkIndexed(ctx context.Context) error {
	return p.store.Put(ctx, KeyLastIndexTS, strconv.FormatInt(p.now().UnixMilli(), 10))
}

// RequestReindex asks for a clear and full crawl on the next start.
func (p *Policy) RequestReindex(ctx context.Context) error {
	p.logger.Info("housekeeping: reindex requested")
	return p.store.Put(ctx, KeyReindex, "1")
}

// Status reports the stored state.
func (p *Policy) Status(ctx context.Context) (State, error) {
	var st State
	v, _, err := p.store.Get(ctx, KeyVersion)
	if err != nil {
		return st, err
	}
	st.Version = v

	if last, ok, err := p.lastIndexed(ctx); err != nil {
		return st, err
	} else if ok {
		st.LastIndexed = &last
	}

	_, st.ReindexRequested, err = p.store.Get(ctx, KeyReindex)
	return st, err
}

func (p *Policy) lastIndexed(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := p.store.Get(ctx, KeyLastIndexTS)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.logger.Warn("housekeeping: unreadable last_index_ts", slog.String("value", raw))
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}
