package trackservice

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/extract"
	"github.com/starford/tonearm/internal/housekeeping"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/testutil"
)

type zeroProber struct{}

func (zeroProber) Duration(string) (float64, error) { return 0, nil }

func testService(t *testing.T) (*Service, *index.Crawler, string) {
	t.Helper()
	root, store := testutil.TestLibrary(t)
	cache := t.TempDir()

	kv, err := housekeeping.OpenSQLite(filepath.Join(cache, "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	policy := housekeeping.NewPolicy(kv, filepath.Join(cache, "index"), "test", testutil.Logger())
	if _, err := policy.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	idx, err := index.Open(filepath.Join(cache, "index"), testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	ext := extract.New(extract.WithDurationProber(zeroProber{}), extract.WithLogger(testutil.Logger()))
	svc := NewService(store, idx, search.New(idx, ext, testutil.Logger()), ext, policy)
	return svc, index.NewCrawler(idx, store, ext, testutil.Logger()), root
}

func TestSearch_RejectsInvalidRequest(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.Search(context.Background(), search.Request{PageSize: search.MaxPageSize + 1})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSearch_RejectsPageBeyondWindow(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.Search(context.Background(), search.Request{Page: math.MaxInt / 10, PageSize: 20})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestOpenAudio(t *testing.T) {
	svc, _, root := testService(t)
	testutil.WriteMP3(t, root, "a/b.mp3", testutil.Tags{Title: "B"})
	ctx := context.Background()

	f, fi, err := svc.OpenAudio(ctx, "a/b.mp3")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if fi.Name() != "b.mp3" || fi.Size() == 0 {
		t.Errorf("file info = %s, %d bytes", fi.Name(), fi.Size())
	}

	if _, _, err := svc.OpenAudio(ctx, "a/gone.mp3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "dir.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.OpenAudio(ctx, "dir.mp3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("directory: err = %v, want ErrNotFound", err)
	}
	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	if _, _, err := svc.OpenAudio(ctx, "notes.txt"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("unsupported: err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := svc.OpenAudio(ctx, "../x.mp3"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("traversal: err = %v, want ErrInvalidInput", err)
	}
}

func TestStatus_WithoutCounter(t *testing.T) {
	kv, err := housekeeping.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	policy := housekeeping.NewPolicy(kv, t.TempDir(), "test", testutil.Logger())
	if err := policy.RequestReindex(context.Background()); err != nil {
		t.Fatal(err)
	}

	st, err := NewService(nil, nil, nil, nil, policy).Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 0 || !st.ReindexRequested || st.Version != "" {
		t.Errorf("status = %+v", st)
	}
}

func TestGetTrack(t *testing.T) {
	svc, _, root := testService(t)
	testutil.WriteMP3(t, root, "a/b.mp3", testutil.Tags{Title: "B", Artist: "Björk"})
	ctx := context.Background()

	tr, err := svc.GetTrack(ctx, "a/b.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Exists || tr.Title != "B" || tr.Artist != "Björk" {
		t.Errorf("track = %+v", tr)
	}

	tr, err = svc.GetTrack(ctx, "a/missing.mp3")
	if err != nil || tr.Exists {
		t.Errorf("missing file: %+v, %v", tr, err)
	}

	if _, err := svc.GetTrack(ctx, "../etc/passwd.mp3"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("traversal: err = %v", err)
	}
	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	if _, err := svc.GetTrack(ctx, "notes.txt"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("unsupported: err = %v", err)
	}
}

func TestStatus(t *testing.T) {
	svc, crawler, root := testService(t)
	testutil.WriteMP3(t, root, "a.mp3", testutil.Tags{Title: "A"})
	ctx := context.Background()

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 0 || st.Version != "test" || st.Crawl != nil {
		t.Errorf("initial status = %+v", st)
	}

	task := crawler.Start()
	svc.TrackCrawl(task)
	if _, err := task.Wait(); err != nil {
		t.Fatal(err)
	}
	<-task.Done()

	st, err = svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 1 {
		t.Errorf("documents = %d, want 1", st.Documents)
	}
	if st.Crawl == nil || st.Crawl.Running || st.Crawl.Report == nil || st.Crawl.Report.Added != 1 {
		t.Errorf("crawl status = %+v", st.Crawl)
	}

	if err := svc.RequestReindex(ctx); err != nil {
		t.Fatal(err)
	}
	if st, _ = svc.Status(ctx); !st.ReindexRequested {
		t.Error("reindex flag not reported")
	}
}
