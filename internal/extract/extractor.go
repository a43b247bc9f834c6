// Package extract turns audio files on disk into normalized track records.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"

	"github.com/starford/tonearm/internal/models"
)

const untitled = "untitled"

var (
	ErrUnsupported = errors.New("extract: unsupported file type")
	ErrNoTag       = errors.New("no tag found")
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{"mp3", "m4a", "mp4", "flac", "wav"}

// Extractor builds Tracks from files. It is safe for concurrent use.
type Extractor struct {
	exts       map[string]struct{}
	compressed TagReader
	wav        TagReader
	prober     DurationProber
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtensions replaces the extension allow-list (without leading dots).
func WithExtensions(exts ...string) Option {
	return func(e *Extractor) {
		e.exts = make(map[string]struct{}, len(exts))
		for _, x := range exts {
			e.exts[strings.ToLower(strings.TrimPrefix(x, "."))] = struct{}{}
		}
	}
}

// WithTagReaders overrides the compressed-format and wav tag readers.
func WithTagReaders(compressed, wav TagReader) Option {
	return func(e *Extractor) {
		e.compressed = compressed
		e.wav = wav
	}
}

// WithDurationProber overrides the stream duration probe.
func WithDurationProber(p DurationProber) Option {
	return func(e *Extractor) { e.prober = p }
}

// WithClock sets the clock used for indexed_at.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New returns an Extractor with the default readers and allow-list.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		compressed: compressedReader{},
		wav:        wavReader{},
		prober:     taglibProber{},
		now:        time.Now,
		logger:     slog.Default(),
	}
	WithExtensions(DefaultExtensions...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Supported reports whether path carries an allow-listed extension.
func (e *Extractor) Supported(path string) bool {
	_, ok := e.exts[extension(path)]
	return ok
}

func (e *Extractor) readerFor(ext string) TagReader {
	if ext == "wav" {
		return e.wav
	}
	return e.compressed
}

// Extract reads path and returns its Track. A tag reader failure yields a
// nil track and the error; absent tag fields fall back to defaults.
func (e *Extractor) Extract(path string) (*models.Track, error) {
	ext := extension(path)
	if _, ok := e.exts[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("extract: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("extract: stat: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupported, path)
	}

	tags, err := e.readerFor(ext).ReadTags(abs)
	if err != nil {
		return nil, err
	}

	created := info.ModTime()
	if ts, err := times.Stat(abs); err == nil && ts.HasBirthTime() {
		created = ts.BirthTime()
	}

	var duration float64
	if ext != "wav" {
		d, err := e.prober.Duration(abs)
		if err != nil {
			e.logger.Debug("extract: duration unavailable", slog.String("path", abs), slog.String("error", err.Error()))
		} else {
			duration = d
		}
	}

	var year uint32
	if tags.Year > 0 {
		year = uint32(tags.Year)
	}

	return &models.Track{
		ID:           TrackID(created, info.Name()),
		AbsolutePath: filepath.ToSlash(abs),
		Name:         info.Name(),
		Title:        orDefault(tags.Title),
		Artist:       orDefault(tags.Artist),
		Album:        orDefault(tags.Album),
		Genres:       NormalizeGenres(tags.Genre),
		Year:         year,
		Size:         info.Size(),
		Duration:     duration,
		CreatedAt:    created.UnixMilli(),
		ModifiedAt:   info.ModTime().UnixMilli(),
		IndexedAt:    e.now().UnixMilli(),
		Exists:       true,
	}, nil
}

func orDefault(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return untitled
	}
	return s
}
