package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func tempLibrary(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, fs
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	dir, s := tempLibrary(t)
	touch(t, filepath.Join(dir, "a.mp3"))
	touch(t, filepath.Join(dir, "album", "b.flac"))
	touch(t, filepath.Join(dir, "album", "deeper", "c.txt"))

	files, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Path)
		if !filepath.IsAbs(f.AbsPath) {
			t.Errorf("AbsPath not absolute: %q", f.AbsPath)
		}
		if f.Size != 1 {
			t.Errorf("size of %s = %d", f.Path, f.Size)
		}
	}
	sort.Strings(got)
	want := []string{"a.mp3", "album/b.flac", "album/deeper/c.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestList_Subdir(t *testing.T) {
	dir, s := tempLibrary(t)
	touch(t, filepath.Join(dir, "a.mp3"))
	touch(t, filepath.Join(dir, "album", "b.flac"))

	files, err := s.List("album")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Path != "album/b.flac" {
		t.Errorf("unexpected listing: %+v", files)
	}
}

func TestList_MissingDir(t *testing.T) {
	_, s := tempLibrary(t)
	if _, err := s.List("nope"); err == nil {
		t.Error("expected error listing a missing directory")
	}
}

func TestResolve(t *testing.T) {
	dir, s := tempLibrary(t)
	got, err := s.Resolve("album/b.flac")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	root, _ := filepath.Abs(dir)
	if got != filepath.Join(root, "album", "b.flac") {
		t.Errorf("Resolve = %q", got)
	}
	if s.Root() != root {
		t.Errorf("Root = %q, want %q", s.Root(), root)
	}
}

func TestResolve_Symlinks(t *testing.T) {
	dir, s := tempLibrary(t)
	outside := filepath.Join(t.TempDir(), "secret.mp3")
	touch(t, outside)
	touch(t, filepath.Join(dir, "album", "b.flac"))

	if err := os.Symlink(outside, filepath.Join(dir, "leak.mp3")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Dir(outside), filepath.Join(dir, "elsewhere")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "album"), filepath.Join(dir, "alias")); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"leak.mp3", "elsewhere/secret.mp3"} {
		if _, err := s.Resolve(p); err == nil {
			t.Errorf("expected %q to be rejected", p)
		}
	}
	got, err := s.Resolve("alias/b.flac")
	if err != nil {
		t.Fatalf("symlink inside the library rejected: %v", err)
	}
	if got != filepath.Join(s.Root(), "alias", "b.flac") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, s := tempLibrary(t)
	for _, p := range []string{
		"../../etc/passwd",
		"../outside.mp3",
		"album/../../outside.mp3",
		"/etc/passwd",
	} {
		if _, err := s.Resolve(p); err == nil {
			t.Errorf("expected traversal error for %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/nonexistent/path/xyz")
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	_ = os.WriteFile(f, []byte("x"), 0o644)
	_, err := NewFS(f)
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
