package extract

import (
	"strconv"
	"time"

	"github.com/gosimple/slug"
)

// TrackID derives the stable identity of a file from its creation time and name.
func TrackID(created time.Time, name string) string {
	return slug.Make(strconv.FormatInt(created.UnixMilli(), 10) + "-" + name)
}
