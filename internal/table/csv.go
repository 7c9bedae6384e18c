package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type delimitedReader struct{}

func (delimitedReader) CanRead(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".tsv") || strings.HasSuffix(lower, ".txt")
}

func (delimitedReader) Read(src io.Reader, name string, opt Options) (*Table, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: trimHeader(header)}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, padRow(rec, len(t.Header)))
	}
	return t, nil
}

// decodeText strips a UTF-8 BOM and converts Shift_JIS input, the default
// encoding of spreadsheet exports on Japanese systems, to UTF-8.
func decodeText(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return b, nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("decode shift_jis: %w", err)
	}
	return out, nil
}

func sniffDelimiter(name string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
