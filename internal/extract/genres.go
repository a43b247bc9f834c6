package extract

import (
	"strconv"
	"strings"
)

// id3v1Genres is the ID3v1 genre table including the Winamp extensions.
var id3v1Genres = [192]string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge", "Hip-Hop",
	"Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B", "Rap",
	"Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska", "Death Metal", "Pranks",
	"Soundtrack", "Euro-Techno", "Ambient", "Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance",
	"Classical", "Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel", "Noise",
	"AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative", "Instrumental Pop", "Instrumental Rock",
	"Ethnic", "Gothic", "Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap", "Pop/Funk", "Jungle",
	"Native American", "Cabaret", "New Wave", "Psychadelic", "Rave", "Showtunes", "Trailer", "Lo-Fi",
	"Tribal", "Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll", "Hard Rock",
	"Folk", "Folk-Rock", "National Folk", "Swing", "Fast Fusion", "Bebob", "Latin", "Revival",
	"Celtic", "Bluegrass", "Avantgarde", "Gothic Rock", "Progressive Rock", "Psychedelic Rock", "Symphonic Rock", "Slow Rock",
	"Big Band", "Chorus", "Easy Listening", "Acoustic", "Humour", "Speech", "Chanson", "Opera",
	"Chamber Music", "Sonata", "Symphony", "Booty Bass", "Primus", "Porn Groove", "Satire", "Slow Jam",
	"Club", "Tango", "Samba", "Folklore", "Ballad", "Power Ballad", "Rhythmic Soul", "Freestyle",
	"Duet", "Punk Rock", "Drum Solo", "A capella", "Euro-House", "Dance Hall", "Goa", "Drum & Bass",
	"Club-House", "Hardcore", "Terror", "Indie", "BritPop", "Negerpunk", "Polsk Punk", "Beat",
	"Christian Gangsta Rap", "Heavy Metal", "Black Metal", "Crossover", "Contemporary Christian", "Christian Rock", "Merengue", "Salsa",
	"Thrash Metal", "Anime", "JPop", "Synthpop", "Abstract", "Art Rock", "Baroque", "Bhangra",
	"Big Beat", "Breakbeat", "Chillout", "Downtempo", "Dub", "EBM", "Eclectic", "Electro",
	"Electroclash", "Emo", "Experimental", "Garage", "Global", "IDM", "Illbient", "Industro-Goth",
	"Jam Band", "Krautrock", "Leftfield", "Lounge", "Math Rock", "New Romantic", "Nu-Breakz", "Post-Punk",
	"Post-Rock", "Psytrance", "Shoegaze", "Space Rock", "Trop Rock", "World Music", "Neoclassical", "Audiobook",
	"Audio Theatre", "Neue Deutsche Welle", "Podcast", "Indie Rock", "G-Funk", "Dubstep", "Garage Rock", "Psybient",
}

var genreCodes = func() map[string]int {
	m := make(map[string]int, len(id3v1Genres))
	for i, name := range id3v1Genres {
		m[name] = i
	}
	return m
}()

var bracketStripper = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "{", "", "}", "")

func isGenreSeparator(r rune) bool {
	return r == '/' || r == ',' || r == ';'
}

// NormalizeGenres splits a raw genre tag into normalized labels.
// Known ID3v1 names become their table index ("Rock" -> "17"); anything
// else is kept with bracket characters stripped. Blank tokens are dropped.
func NormalizeGenres(raw string) []string {
	raw = strings.ReplaceAll(raw, "\x00", ";")
	out := []string{}
	for _, tok := range strings.FieldsFunc(raw, isGenreSeparator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if code, ok := genreCodes[tok]; ok {
			out = append(out, strconv.Itoa(code))
			continue
		}
		if s := strings.TrimSpace(bracketStripper.Replace(tok)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GenreName resolves a normalized genre label back to a display name.
// Labels that are not table indices are returned unchanged.
func GenreName(label string) string {
	i, err := strconv.Atoi(label)
	if err != nil || i < 0 || i >= len(id3v1Genres) {
		return label
	}
	return id3v1Genres[i]
}
