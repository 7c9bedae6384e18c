// Package calc ties the table loader to the GPA aggregator.
package calc

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/gpacalc/internal/gpa"
	"github.com/KaramelBytes/gpacalc/internal/table"
)

// Options bundles everything needed to go from a source to a Result.
// Zero-valued fields fall back to their package defaults.
type Options struct {
	Table   table.Options
	Columns table.Columns
	Points  gpa.GradePoints
	Policy  gpa.Policy
}

// DefaultOptions returns the defaults of every stage.
func DefaultOptions() Options {
	return Options{
		Table:   table.DefaultOptions(),
		Columns: table.DefaultColumns(),
		Points:  gpa.DefaultGradePoints(),
		Policy:  gpa.DefaultPolicy(),
	}
}

// FromFile loads path and aggregates its records. Missing required columns
// surface as *table.LoadError.
func FromFile(path string, opt Options) (gpa.Result, error) {
	t, err := table.Load(path, opt.Table)
	if err != nil {
		return gpa.Result{}, err
	}
	return fromTable(t, opt)
}

// FromReader is FromFile for a byte stream; name selects the format.
func FromReader(r io.Reader, name string, opt Options) (gpa.Result, error) {
	t, err := table.LoadReader(r, name, opt.Table)
	if err != nil {
		return gpa.Result{}, err
	}
	return fromTable(t, opt)
}

func fromTable(t *table.Table, opt Options) (gpa.Result, error) {
	recs, err := t.Records(opt.Columns, opt.Table)
	if err != nil {
		return gpa.Result{}, fmt.Errorf("load records: %w", err)
	}
	return gpa.Aggregate(recs, opt.Points, opt.Policy), nil
}
