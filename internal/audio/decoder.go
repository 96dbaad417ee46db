package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedCodec is returned for accepted uploads that have no local decoder (m4a, aac).
var ErrUnsupportedCodec = errors.New("no decoder for audio format")

// MediaError is a decode or playback failure. It only ever affects playback.
type MediaError struct {
	Op     string
	Source string
	Err    error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Decode opens a beep stream for the given extension.
func Decode(rc io.ReadSeekCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case ".mp3":
		return mp3.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	case ".flac":
		return flac.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, ext)
	}
}

// Duration decodes just enough of data to report its length in seconds.
func Duration(data []byte, ext string) (float64, error) {
	stream, format, err := Decode(nopCloser{bytes.NewReader(data)}, ext)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	return format.SampleRate.D(stream.Len()).Seconds(), nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
