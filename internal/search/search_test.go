package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/starford/tonearm/internal/extract"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/testutil"
)

type zeroProber struct{}

func (zeroProber) Duration(string) (float64, error) { return 0, nil }

type fixture struct {
	name    string
	tags    testutil.Tags
	mtime   time.Time
	garbage bool
}

// library writes the fixtures, crawls them into a fresh index and returns
// a searcher over it along with the library root.
func library(t *testing.T, files ...fixture) (*Searcher, string) {
	t.Helper()
	root, store := testutil.TestLibrary(t)
	for _, f := range files {
		if f.garbage {
			testutil.WriteGarbage(t, root, f.name)
			continue
		}
		path := testutil.WriteMP3(t, root, f.name, f.tags)
		if !f.mtime.IsZero() {
			if err := os.Chtimes(path, f.mtime, f.mtime); err != nil {
				t.Fatal(err)
			}
		}
	}

	idx, err := index.Open(filepath.Join(t.TempDir(), "index"), testutil.Logger())
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	ext := extract.New(extract.WithDurationProber(zeroProber{}), extract.WithLogger(testutil.Logger()))
	if _, err := index.NewCrawler(idx, store, ext, testutil.Logger()).Crawl(); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	return New(idx, ext, testutil.Logger()), root
}

func mustSearch(t *testing.T, s *Searcher, req Request) *Response {
	t.Helper()
	resp, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search(%+v): %v", req, err)
	}
	return resp
}

func TestSearch_ArtistPhrase(t *testing.T) {
	s, _ := library(t,
		fixture{name: "eminem.mp3", tags: testutil.Tags{Title: "Without Me", Artist: "Eminem", Year: "2002"}},
		fixture{name: "other.mp3", tags: testutil.Tags{Title: "Clocks", Artist: "Coldplay", Year: "2002"}},
		fixture{name: "broken.mp3", garbage: true},
	)

	resp := mustSearch(t, s, Request{Text: `"Eminem"`})
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total = %d, results = %d, want 1", resp.Total, len(resp.Results))
	}
	got := resp.Results[0].Track
	if !got.Exists || got.Artist != "Eminem" || got.Title != "Without Me" {
		t.Errorf("unexpected track %+v", got)
	}
	if got.ID == "" || got.IndexedAt == 0 {
		t.Errorf("stored id/indexed_at not carried over: %+v", got)
	}
	if !resp.Relevance || resp.Results[0].Score.Relevance <= 0 {
		t.Errorf("expected relevance scoring, got %+v", resp.Results[0].Score)
	}
	if resp.Query != `"Eminem"` {
		t.Errorf("query echoed as %q", resp.Query)
	}
}

func TestSearch_YearFacetCounts(t *testing.T) {
	s, _ := library(t,
		fixture{name: "a.mp3", tags: testutil.Tags{Title: "A", Year: "2001"}},
		fixture{name: "b.mp3", tags: testutil.Tags{Title: "B", Year: "2002"}},
		fixture{name: "c.mp3", tags: testutil.Tags{Title: "C", Year: "2002"}},
	)

	resp := mustSearch(t, s, Request{Facets: []string{index.FacetYear}})
	want := []FacetCount{{Path: "/year/2002", Count: 2}, {Path: "/year/2001", Count: 1}}
	if got := resp.Facets[index.FacetYear]; !reflect.DeepEqual(got, want) {
		t.Errorf("facets = %+v, want %+v", got, want)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
}

func TestSearch_Pagination(t *testing.T) {
	var files []fixture
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		files = append(files, fixture{name: "track" + n + ".mp3", tags: testutil.Tags{Title: "Song " + n}})
	}
	s, _ := library(t, files...)

	seen := make(map[string]bool)
	for page, want := range []struct {
		n    int
		next bool
	}{{2, true}, {2, true}, {1, false}} {
		resp := mustSearch(t, s, Request{Page: page, PageSize: 2})
		if len(resp.Results) != want.n || resp.Total != want.n || resp.HasNextPage != want.next {
			t.Fatalf("page %d: results=%d total=%d next=%v", page, len(resp.Results), resp.Total, resp.HasNextPage)
		}
		for i, r := range resp.Results {
			if r.Score.Booster != page*2+i {
				t.Errorf("page %d hit %d: booster = %d", page, i, r.Score.Booster)
			}
			seen[r.Track.AbsolutePath] = true
		}
	}
	if len(seen) != 5 {
		t.Errorf("pages covered %d distinct tracks, want 5", len(seen))
	}

	resp := mustSearch(t, s, Request{Page: 10, PageSize: 2})
	if len(resp.Results) != 0 || resp.HasNextPage {
		t.Errorf("page past the end: %+v", resp)
	}

	resp = mustSearch(t, s, Request{Page: math.MaxInt / 10, PageSize: 20, Facets: []string{index.FacetYear}})
	if len(resp.Results) != 0 || resp.Total != 0 || resp.HasNextPage {
		t.Errorf("page past the window: %+v", resp)
	}
}

func TestSearch_PathRoundTrip(t *testing.T) {
	s, root := library(t,
		fixture{name: "albums/first.mp3", tags: testutil.Tags{Title: "First"}},
		fixture{name: "albums/second.mp3", tags: testutil.Tags{Title: "Second"}},
	)
	path := filepath.Join(root, "albums", "second.mp3")

	resp := mustSearch(t, s, Request{Text: `"` + path + `"`})
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if got := resp.Results[0].Track.AbsolutePath; got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}

func TestSearch_UnparsableTextDoesNotFail(t *testing.T) {
	s, _ := library(t, fixture{name: "a.mp3", tags: testutil.Tags{Title: "Lose Yourself", Artist: "Eminem"}})

	resp := mustSearch(t, s, Request{Text: `"lose" artist:`})
	if resp.Results == nil {
		t.Error("results must be a non-nil slice")
	}
}

func TestSearch_FacetFiltersAreORed(t *testing.T) {
	s, _ := library(t,
		fixture{name: "rock.mp3", tags: testutil.Tags{Title: "R", Genre: "Rock"}},
		fixture{name: "jazz.mp3", tags: testutil.Tags{Title: "J", Genre: "Jazz"}},
		fixture{name: "metal.mp3", tags: testutil.Tags{Title: "M", Genre: "Metal"}},
	)

	resp := mustSearch(t, s, Request{Facets: []string{"/genre/17", "/genre/8"}})
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	for _, r := range resp.Results {
		if r.Track.AbsolutePath == "" || filepath.Base(r.Track.AbsolutePath) == "metal.mp3" {
			t.Errorf("unexpected hit %q", r.Track.AbsolutePath)
		}
	}

	resp = mustSearch(t, s, Request{Facets: []string{"genre", "/genre/9/"}})
	if resp.Total != 3 {
		t.Errorf("invalid facets should be ignored, total = %d", resp.Total)
	}
}

func TestSearch_DateOrdering(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := library(t,
		fixture{name: "middle.mp3", tags: testutil.Tags{Title: "x"}, mtime: base.Add(time.Hour)},
		fixture{name: "oldest.mp3", tags: testutil.Tags{Title: "x"}, mtime: base},
		fixture{name: "newest.mp3", tags: testutil.Tags{Title: "x"}, mtime: base.Add(2 * time.Hour)},
	)

	names := func(resp *Response) []string {
		var out []string
		for _, r := range resp.Results {
			out = append(out, filepath.Base(r.Track.AbsolutePath))
		}
		return out
	}

	asc := mustSearch(t, s, Request{Order: &Order{Field: "modified_at", Direction: Asc}})
	if got, want := names(asc), []string{"oldest.mp3", "middle.mp3", "newest.mp3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("asc = %q, want %q", got, want)
	}
	if asc.Relevance {
		t.Error("field ordering must report relevance=false")
	}
	for i, r := range asc.Results {
		if r.Score.Relevance != 0 || r.Score.Booster != i {
			t.Errorf("hit %d: score %+v", i, r.Score)
		}
	}

	desc := mustSearch(t, s, Request{Order: &Order{Field: "modified"}})
	if got, want := names(desc), []string{"newest.mp3", "middle.mp3", "oldest.mp3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("desc = %q, want %q", got, want)
	}
}

func TestSearch_MissingFileSentinel(t *testing.T) {
	s, root := library(t, fixture{name: "gone.mp3", tags: testutil.Tags{Title: "Gone"}})
	if err := os.Remove(filepath.Join(root, "gone.mp3")); err != nil {
		t.Fatal(err)
	}

	resp := mustSearch(t, s, Request{Text: "gone"})
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0].Track
	if got.Exists || got.AbsolutePath != "" || got.Genres == nil {
		t.Errorf("expected missing sentinel, got %+v", got)
	}
}

func TestSearch_FacetsOnly(t *testing.T) {
	s, _ := library(t,
		fixture{name: "a.mp3", tags: testutil.Tags{Title: "A", Artist: "Blur"}},
		fixture{name: "b.mp3", tags: testutil.Tags{Title: "B", Artist: "Blur"}},
	)

	resp := mustSearch(t, s, Request{Facets: []string{index.FacetArtist}, FacetsOnly: true})
	if len(resp.Results) != 0 || resp.HasNextPage {
		t.Errorf("facets-only returned hits: %+v", resp.Results)
	}
	want := []FacetCount{{Path: "/artist/Blur", Count: 2}}
	if got := resp.Facets[index.FacetArtist]; !reflect.DeepEqual(got, want) {
		t.Errorf("facets = %+v, want %+v", got, want)
	}
}

func TestSearch_YearFilter(t *testing.T) {
	s, _ := library(t,
		fixture{name: "a.mp3", tags: testutil.Tags{Title: "A", Year: "1999"}},
		fixture{name: "b.mp3", tags: testutil.Tags{Title: "B", Year: "2002"}},
		fixture{name: "c.mp3", tags: testutil.Tags{Title: "C", Year: "2010"}},
	)

	from, to := uint32(2000), uint32(2005)
	resp := mustSearch(t, s, Request{Filters: Filters{YearFrom: &from, YearTo: &to}})
	if resp.Total != 1 || resp.Results[0].Track.Year != 2002 {
		t.Errorf("unexpected results %+v", resp.Results)
	}

	resp = mustSearch(t, s, Request{Filters: Filters{YearFrom: &from}})
	if resp.Total != 2 {
		t.Errorf("open upper bound: total = %d, want 2", resp.Total)
	}
}

func TestSearch_CreatedRange(t *testing.T) {
	hourAgo := time.Now().Add(-time.Hour)
	s, _ := library(t,
		fixture{name: "eminem.mp3", tags: testutil.Tags{Title: "Without Me", Artist: "Eminem"}},
		fixture{name: "blur.mp3", tags: testutil.Tags{Title: "Song 2", Artist: "Blur"}},
		fixture{name: "muse.mp3", tags: testutil.Tags{Title: "Uprising", Artist: "Muse"}},
	)
	inHour := time.Now().Add(time.Hour)

	for _, c := range []struct {
		name string
		req  Request
		want int
	}{
		{"open upper bound", Request{Filters: Filters{CreatedFrom: &hourAgo}}, 3},
		{"closed window", Request{Filters: Filters{CreatedFrom: &hourAgo, CreatedTo: &inHour}}, 3},
		{"window in the past", Request{Filters: Filters{CreatedTo: &hourAgo}}, 0},
		{"window in the future", Request{Filters: Filters{CreatedFrom: &inHour}}, 0},
		{"combined with text", Request{Text: `"Eminem"`, Filters: Filters{CreatedFrom: &hourAgo, CreatedTo: &inHour}}, 1},
	} {
		resp := mustSearch(t, s, c.req)
		if resp.Total != c.want {
			t.Errorf("%s: total = %d, want %d", c.name, resp.Total, c.want)
		}
		for _, r := range resp.Results {
			created := time.UnixMilli(r.Track.CreatedAt)
			if created.Before(hourAgo) || created.After(inHour) {
				t.Errorf("%s: created_at %v outside the window", c.name, created)
			}
		}
	}
}
