package table

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/KaramelBytes/gpacalc/internal/gpa"
	"golang.org/x/text/unicode/norm"
)

// Options controls how a source is read into a Table.
type Options struct {
	// Delimiter for delimited text. If 0, uses '\t' for .tsv files and
	// otherwise sniffs the header line among ',', ';' and '\t'.
	Delimiter rune
	// DecimalSeparator used by credit cells. If 0, '.' is assumed.
	DecimalSeparator rune
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for course-record exports.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

// Table is a loaded source: a trimmed header and raw string cells. Rows are
// padded to at least the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Columns lists the accepted header names for each logical column.
type Columns struct {
	Grade    []string
	Credits  []string
	Category []string
}

// DefaultColumns returns the registrar export headers plus their English
// equivalents.
func DefaultColumns() Columns {
	return Columns{
		Grade:    []string{"総合評価", "overall_grade"},
		Credits:  []string{"単位数", "credit_count"},
		Category: []string{"科目区分", "subject_category"},
	}
}

func (c Columns) orDefault() Columns {
	d := DefaultColumns()
	if len(c.Grade) == 0 {
		c.Grade = d.Grade
	}
	if len(c.Credits) == 0 {
		c.Credits = d.Credits
	}
	if len(c.Category) == 0 {
		c.Category = d.Category
	}
	return c
}

// Logical column names reported by LoadError.
const (
	ColumnGrade    = "overall_grade"
	ColumnCredits  = "credit_count"
	ColumnCategory = "subject_category"
)

// LoadError reports required columns that are absent from a source.
type LoadError struct {
	Source  string
	Missing []string
	Header  []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: missing required column(s) %s (found: %s)",
		e.Source, strings.Join(e.Missing, ", "), strings.Join(e.Header, ", "))
}

// Index returns the position of the first header matching any of names.
// Matching ignores case, width variants and all whitespace.
func (t *Table) Index(names ...string) (int, bool) {
	keys := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		k := headerKey(h)
		if _, dup := keys[k]; !dup {
			keys[k] = i
		}
	}
	for _, n := range names {
		if i, ok := keys[headerKey(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// Records maps rows to course records. A table without a header yields no
// records and no error; a header lacking any required column yields a
// *LoadError. Cells never cause errors: unparseable credits become undefined.
func (t *Table) Records(cols Columns, opt Options) ([]gpa.Record, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, nil
	}
	cols = cols.orDefault()
	gi, gok := t.Index(cols.Grade...)
	ci, cok := t.Index(cols.Credits...)
	ki, kok := t.Index(cols.Category...)
	var missing []string
	if !gok {
		missing = append(missing, ColumnGrade)
	}
	if !cok {
		missing = append(missing, ColumnCredits)
	}
	if !kok {
		missing = append(missing, ColumnCategory)
	}
	if len(missing) > 0 {
		return nil, &LoadError{Source: t.Name, Missing: missing, Header: t.Header}
	}
	out := make([]gpa.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, gpa.Record{
			Grade:    strings.TrimSpace(cell(row, gi)),
			Credits:  ParseCredit(cell(row, ci), opt.DecimalSeparator),
			Category: strings.TrimSpace(cell(row, ki)),
		})
	}
	return out, nil
}

// ParseCredit coerces a credit cell to a number. Blank, unparseable and
// non-finite cells are undefined.
func ParseCredit(s string, decimal rune) gpa.Value {
	raw := strings.TrimSpace(norm.NFKC.String(s))
	if raw == "" {
		return gpa.None()
	}
	if decimal != 0 && decimal != '.' {
		raw = strings.ReplaceAll(raw, string(decimal), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return gpa.None()
	}
	return gpa.Some(f)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func headerKey(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s))
}

// trimHeader strips surrounding whitespace (and a stray BOM) from header cells.
func trimHeader(h []string) []string {
	out := make([]string, len(h))
	for i, s := range h {
		out[i] = strings.TrimFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' })
	}
	return out
}

func padRow(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	tmp := make([]string, n)
	copy(tmp, row)
	return tmp
}
