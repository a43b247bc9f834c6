package extract

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// TagData is the tag subset a Track is built from. Empty fields mean absent.
type TagData struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
}

// TagReader decodes tag data for one family of file formats.
type TagReader interface {
	ReadTags(path string) (TagData, error)
}

// compressedReader reads ID3, MP4 atoms and Vorbis comments.
type compressedReader struct{}

func (compressedReader) ReadTags(path string) (TagData, error) {
	f, err := os.Open(path)
	if err != nil {
		return TagData{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return TagData{}, fmt.Errorf("extract: read tags %s: %w", path, err)
	}
	return TagData{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
	}, nil
}
