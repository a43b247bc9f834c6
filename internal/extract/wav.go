package extract

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// wavReader reads the ID3v2 tag embedded in a RIFF "id3 " chunk.
type wavReader struct{}

func (wavReader) ReadTags(path string) (TagData, error) {
	f, err := os.Open(path)
	if err != nil {
		return TagData{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return TagData{}, err
	}
	chunk, err := findID3Chunk(f, info.Size())
	if err != nil {
		return TagData{}, fmt.Errorf("extract: %s: %w", path, err)
	}

	t, err := id3v2.ParseReader(chunk, id3v2.Options{Parse: true})
	if err != nil {
		return TagData{}, fmt.Errorf("extract: parse id3 chunk %s: %w", path, err)
	}

	return TagData{
		Title:  t.Title(),
		Artist: t.Artist(),
		Album:  t.Album(),
		Genre:  t.Genre(),
		Year:   parseYear(t.Year()),
	}, nil
}

// findID3Chunk walks the RIFF chunk list and returns the body of the
// first "id3 " (or "ID3 ") chunk.
func findID3Chunk(r io.ReaderAt, size int64) (*io.SectionReader, error) {
	var hdr [12]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, ErrNoTag
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file: %w", ErrNoTag)
	}

	off := int64(12)
	var ch [8]byte
	for off+8 <= size {
		if _, err := r.ReadAt(ch[:], off); err != nil {
			break
		}
		n := int64(binary.LittleEndian.Uint32(ch[4:8]))
		switch string(ch[0:4]) {
		case "id3 ", "ID3 ":
			return io.NewSectionReader(r, off+8, n), nil
		}
		off += 8 + n + n%2
	}
	return nil, ErrNoTag
}

func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) > 4 {
		s = s[:4]
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 0 {
		return 0
	}
	return y
}
