// Package index maintains the bleve track index: field mapping, the single
// serialized writer, the crawl pipeline and the filesystem watcher.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index wraps a bleve index. Reads go straight to bleve; every mutation
// goes through the pending batch under mu and becomes visible on Commit.
type Index struct {
	idx    bleve.Index
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	batch    *bleve.Batch
	pending  map[string]struct{}
	closed   bool
	readOnly bool
}

// ErrReadOnly is returned by mutations on an index opened with OpenReadOnly.
var ErrReadOnly = errors.New("index: opened read-only")

// Open opens the index at dir, creating the directory and an empty index
// with the track mapping when none exists. An existing index is opened as-is.
func Open(dir string, logger *slog.Logger) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("index: create cache dir: %w", err)
	}

	idx, err := bleve.Open(dir)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Info("index: creating", slog.String("dir", dir))
		idx, err = bleve.New(dir, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", dir, err)
	}

	return &Index{
		idx:     idx,
		dir:     dir,
		logger:  logger,
		batch:   idx.NewBatch(),
		pending: make(map[string]struct{}),
	}, nil
}

// OpenReadOnly opens an existing index for reading only. It takes a shared
// lock, so it fails after lockTimeout while a writer holds the index.
// A missing index is reported as bleve.ErrorIndexPathDoesNotExist.
func OpenReadOnly(dir string, lockTimeout time.Duration, logger *slog.Logger) (*Index, error) {
	idx, err := bleve.OpenUsing(dir, map[string]interface{}{
		"read_only":    true,
		"bolt_timeout": lockTimeout.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("index: open %s read-only: %w", dir, err)
	}
	return &Index{
		idx:      idx,
		dir:      dir,
		logger:   logger,
		batch:    idx.NewBatch(),
		pending:  make(map[string]struct{}),
		readOnly: true,
	}, nil
}

// Dir returns the on-disk location of the index.
func (x *Index) Dir() string {
	return x.dir
}

// Close discards uncommitted additions and closes the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	if n := len(x.pending); n > 0 {
		x.logger.Warn("index: closing with uncommitted documents", slog.Int("count", n))
	}
	return x.idx.Close()
}

func buildMapping() mapping.IndexMapping {
	keyword := func(store bool) *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = store
		fm.IncludeInAll = false
		return fm
	}
	text := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = false
		fm.IncludeTermVectors = true
		return fm
	}
	numeric := func() *mapping.FieldMapping {
		fm := bleve.NewNumericFieldMapping()
		fm.IncludeInAll = false
		return fm
	}
	date := func() *mapping.FieldMapping {
		fm := bleve.NewDateTimeFieldMapping()
		fm.Store = true
		fm.IncludeInAll = false
		return fm
	}

	pathText := text()
	pathText.Name = FieldPathText

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(FieldID, keyword(true))
	doc.AddFieldMappingsAt(FieldPath, keyword(true), pathText)
	doc.AddFieldMappingsAt(FieldName, text())
	doc.AddFieldMappingsAt(FieldTitle, text())
	doc.AddFieldMappingsAt(FieldArtist, text())
	doc.AddFieldMappingsAt(FieldAlbum, text())
	doc.AddFieldMappingsAt(FieldGenres, keyword(false))
	doc.AddFieldMappingsAt(FieldYear, numeric())
	doc.AddFieldMappingsAt(FieldSize, numeric())
	doc.AddFieldMappingsAt(FieldDuration, numeric())
	doc.AddFieldMappingsAt(FieldCreated, date())
	doc.AddFieldMappingsAt(FieldModified, date())
	doc.AddFieldMappingsAt(FieldIndexed, date())
	doc.AddFieldMappingsAt(FieldFacets, keyword(false))
	for _, root := range FacetRoots {
		field, _ := FacetField(root)
		doc.AddFieldMappingsAt(field, keyword(false))
	}

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = standard.Name
	m.DefaultMapping = doc
	return m
}
