// Package report converts aggregation results into their outward forms: the
// JSON payload of the calc endpoint and the console summary.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/gpacalc/internal/gpa"
	"github.com/shopspring/decimal"
)

// Fractional digits kept at the response boundary.
const (
	GPADigits   = 3
	RatioDigits = 4
)

// Response is the calc payload. Undefined metrics are encoded as null.
type Response struct {
	GPA   *float64 `json:"gpa"`
	Ratio *float64 `json:"ratio"`
}

// New rounds the defined metrics of res. This is the only place rounding
// happens; aggregation keeps full precision.
func New(res gpa.Result) Response {
	return Response{
		GPA:   round(res.GPA, GPADigits),
		Ratio: round(res.Ratio, RatioDigits),
	}
}

func round(v gpa.Value, places int32) *float64 {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	r := roundExact(f, places).InexactFloat64()
	return &r
}

// roundExact rounds the exact binary value of f to places fractional digits,
// breaking exact ties to even.
func roundExact(f float64, places int32) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(f, 'f', int(places), 64))
}

// Text renders the console summary of res.
func Text(res gpa.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cumulative GPA: %s\n", fixed(res.GPA, GPADigits)))
	ratio := "n/a"
	if f, ok := res.Ratio.Get(); ok {
		ratio = roundExact(f*100, 2).StringFixed(2) + "%"
	}
	b.WriteString(fmt.Sprintf("Top-tier credit ratio (non-P/F): %s\n", ratio))
	t := res.Totals
	b.WriteString(fmt.Sprintf("\nRows: %d\n", t.Rows))
	b.WriteString(fmt.Sprintf("GPA credits: %s over %d course(s), %s grade points\n",
		trim(t.GPACredits), t.GPARows, trim(t.GPAPoints)))
	b.WriteString(fmt.Sprintf("Ratio credits: %s over %d course(s), %s at A or above\n",
		trim(t.RatioCredits), t.RatioRows, trim(t.TopTierCredits)))
	return b.String()
}

func fixed(v gpa.Value, places int32) string {
	f, ok := v.Get()
	if !ok {
		return "n/a"
	}
	return roundExact(f, places).StringFixed(places)
}

func trim(f float64) string { return decimal.NewFromFloat(f).String() }
