package gpa

import (
	"math"
	"strconv"
)

// Value is an optional float64. The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Some returns a defined Value. NaN and infinities are stored as undefined so
// they can never leak out of an aggregation.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// None returns an undefined Value.
func None() Value { return Value{} }

// Get returns the wrapped number and whether it is defined.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// Defined reports whether x holds a number.
func (x Value) Defined() bool { return x.ok }

// Or returns the wrapped number, or def when x is undefined.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

func (x Value) String() string {
	if !x.ok {
		return "undefined"
	}
	return strconv.FormatFloat(x.v, 'g', -1, 64)
}
