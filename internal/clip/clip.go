// Package clip holds the identity of an audio clip picked for classification.
package clip

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Extensions is the fixed set of accepted audio file extensions.
var Extensions = []string{".wav", ".mp3", ".m4a", ".aac"}

var extensionMIME = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".aac": "audio/aac",
}

// Raw is an unvalidated candidate from a file picker, a drop or the recorder.
type Raw struct {
	Name     string
	Data     []byte
	MIMEType string
}

// ReadFile loads a candidate from disk.
func ReadFile(path string) (Raw, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the user
	if err != nil {
		return Raw{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Raw{Name: filepath.Base(path), Data: data}, nil
}

// Ext returns the lower-cased extension of the candidate's name.
func (r Raw) Ext() string {
	return strings.ToLower(filepath.Ext(r.Name))
}

// Accepted reports whether ext is in the accepted set.
func Accepted(ext string) bool {
	return slices.Contains(Extensions, strings.ToLower(ext))
}

// CanonicalMIME returns the MIME type associated with an accepted extension.
func CanonicalMIME(ext string) string {
	return extensionMIME[strings.ToLower(ext)]
}

// File is an armed clip. It is never mutated; a new selection replaces it.
type File struct {
	id       uuid.UUID
	name     string
	mimeType string
	title    string
	data     []byte
}

// New builds a File from a validated candidate. The payload is copied.
func New(name, mimeType, title string, data []byte) File {
	return File{
		id:       uuid.New(),
		name:     name,
		mimeType: mimeType,
		title:    title,
		data:     bytes.Clone(data),
	}
}

// ID identifies this selection instance. Two selections of the same bytes differ.
func (f File) ID() uuid.UUID { return f.id }

func (f File) Name() string     { return f.name }
func (f File) MIMEType() string { return f.mimeType }
func (f File) Size() int64      { return int64(len(f.data)) }

// Title is the embedded tag title, if the file carried one.
func (f File) Title() string { return f.title }

// Ext returns the lower-cased extension of the file name.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.name))
}

// IsZero reports whether f is the zero File (nothing armed).
func (f File) IsZero() bool {
	return f.id == uuid.Nil
}

// Reader returns a fresh reader over the payload.
func (f File) Reader() io.ReadSeeker {
	return bytes.NewReader(f.data)
}
