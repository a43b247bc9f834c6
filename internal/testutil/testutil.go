// Package testutil provides shared test helpers: temporary libraries and
// generated audio fixtures.
package testutil

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"

	"github.com/starford/tonearm/internal/storage"
)

// Tags describes the ID3 frames written into a fixture. Empty fields are omitted.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   string
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// mpegPayload is a handful of silent MPEG-1 Layer III frame headers.
func mpegPayload() []byte {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
	return bytes.Repeat(frame, 8)
}

func newTag(tags Tags) *id3v2.Tag {
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingISO)
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.Genre != "" {
		tag.SetGenre(tags.Genre)
	}
	if tags.Year != "" {
		tag.SetYear(tags.Year)
	}
	return tag
}

// WriteMP3 writes an ID3v2.3-tagged mp3 at dir/name and returns its path.
func WriteMP3(t *testing.T, dir, name string, tags Tags) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := newTag(tags).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	buf.Write(mpegPayload())
	return writeFile(t, filepath.Join(dir, name), buf.Bytes())
}

// WriteWAV writes a minimal PCM wav carrying an "id3 " chunk.
func WriteWAV(t *testing.T, dir, name string, tags Tags) string {
	t.Helper()
	var id3 bytes.Buffer
	if _, err := newTag(tags).WriteTo(&id3); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	body.WriteString("WAVE")

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)    // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:], 1)    // channels
	binary.LittleEndian.PutUint32(fmtChunk[4:], 8000) // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:], 8000) // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:], 1)   // block align
	binary.LittleEndian.PutUint16(fmtChunk[14:], 8)   // bits per sample
	writeChunk(&body, "fmt ", fmtChunk)
	writeChunk(&body, "data", make([]byte, 64))
	writeChunk(&body, "id3 ", id3.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	_, _ = io.Copy(&out, &body)
	return writeFile(t, filepath.Join(dir, name), out.Bytes())
}

// WriteGarbage writes a file with an audio extension but no readable metadata.
func WriteGarbage(t *testing.T, dir, name string) string {
	t.Helper()
	return writeFile(t, filepath.Join(dir, name), []byte("this is not an audio file"))
}

func writeChunk(w *bytes.Buffer, id string, data []byte) {
	w.WriteString(id)
	_ = binary.Write(w, binary.LittleEndian, uint32(len(data)))
	w.Write(data)
	if len(data)%2 == 1 {
		w.WriteByte(0)
	}
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
