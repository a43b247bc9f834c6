package extract

import "go.senan.xyz/taglib"

// DurationProber measures playback length from the audio stream itself.
type DurationProber interface {
	Duration(path string) (float64, error)
}

type taglibProber struct{}

func (taglibProber) Duration(path string) (float64, error) {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0, err
	}
	return props.Length.Seconds(), nil
}
