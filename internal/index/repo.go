package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/models"
)

// Add queues t unless a document with the same absolute path is already
// committed or pending. The check and the insert share the writer lock.
func (x *Index) Add(t models.Track) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return false, apperr.ErrIndexClosed
	}

	if _, ok := x.pending[t.AbsolutePath]; ok {
		return false, nil
	}
	found, err := x.exists(t.AbsolutePath)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	return true, x.queue(t)
}

// Replace queues t, overwriting any document stored for the same path.
func (x *Index) Replace(t models.Track) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return apperr.ErrIndexClosed
	}
	return x.queue(t)
}

func (x *Index) queue(t models.Track) error {
	if x.readOnly {
		return ErrReadOnly
	}
	if err := x.batch.Index(t.AbsolutePath, document(t, x.logger)); err != nil {
		return fmt.Errorf("index: add %s: %w", t.AbsolutePath, err)
	}
	x.pending[t.AbsolutePath] = struct{}{}
	return nil
}

// Commit applies every queued document atomically and returns how many
// were applied.
func (x *Index) Commit() (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return 0, apperr.ErrIndexClosed
	}

	n := len(x.pending)
	if n == 0 {
		return 0, nil
	}
	if err := x.idx.Batch(x.batch); err != nil {
		return 0, fmt.Errorf("index: commit: %w", err)
	}
	x.batch.Reset()
	x.pending = make(map[string]struct{})
	x.logger.Debug("index: committed", slog.Int("documents", n))
	return n, nil
}

// Exists reports whether a document for path has been committed.
func (x *Index) Exists(path string) (bool, error) {
	return x.exists(path)
}

func (x *Index) exists(path string) (bool, error) {
	q := bleve.NewTermQuery(path)
	q.SetField(FieldPath)
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return false, fmt.Errorf("index: lookup %s: %w", path, err)
	}
	return res.Total > 0, nil
}

// StoredModifiedAt returns the modification time recorded for path.
func (x *Index) StoredModifiedAt(path string) (int64, bool, error) {
	q := bleve.NewTermQuery(path)
	q.SetField(FieldPath)
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{FieldModified}
	res, err := x.idx.Search(req)
	if err != nil {
		return 0, false, fmt.Errorf("index: lookup %s: %w", path, err)
	}
	if len(res.Hits) == 0 {
		return 0, false, nil
	}
	ms, _ := StoredTime(res.Hits[0].Fields[FieldModified])
	return ms, true, nil
}

// Count returns the number of committed documents.
func (x *Index) Count() (uint64, error) {
	n, err := x.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Search runs req against the committed documents.
func (x *Index) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return res, nil
}

// StoredTime converts a stored datetime field value to epoch milliseconds.
func StoredTime(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
