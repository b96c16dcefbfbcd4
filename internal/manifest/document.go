package manifest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cameronsjo/podgen/internal/fileutil"
)

// ErrWrite indicates the manifest could not be written to its sink.
var ErrWrite = errors.New("write manifest")

// Document is a rendered manifest without blank lines.
type Document struct {
	lines []string
}

// newDocument drops every empty or whitespace-only line of text.
func newDocument(text string) *Document {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return &Document{lines: lines}
}

// Lines returns a copy of the document's lines.
func (d *Document) Lines() []string {
	return append([]string(nil), d.lines...)
}

// String returns the document text, newline terminated.
func (d *Document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	return strings.Join(d.lines, "\n") + "\n"
}

// Bytes returns the document text as bytes.
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}

// WriteTo writes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	if err != nil {
		return int64(n), fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return int64(n), nil
}

// WriteFile atomically replaces path with the document.
func (d *Document) WriteFile(path string) error {
	if err := fileutil.WriteFile(path, d.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}
