// Package table loads course-record exports (CSV, TSV, XLSX) into an
// in-memory table and maps its rows to gpa records.
package table

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Reader decodes one tabular file format.
type Reader interface {
	CanRead(name string) bool
	Read(r io.Reader, name string, opt Options) (*Table, error)
}

var registry []Reader

// Register adds a format reader to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func readerFor(name string) Reader {
	for _, r := range registry {
		if r.CanRead(name) {
			return r
		}
	}
	// Fallback to delimited text
	return delimitedReader{}
}

// Load opens path and reads it with the reader registered for its extension.
func Load(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return LoadReader(f, path, opt)
}

// LoadReader reads a table from r. name selects the format by extension and
// becomes the table name.
func LoadReader(r io.Reader, name string, opt Options) (*Table, error) {
	t, err := readerFor(name).Read(r, name, opt)
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(name)
	return t, nil
}

func init() {
	Register(delimitedReader{})
	Register(xlsxReader{})
}
