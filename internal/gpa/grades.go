package gpa

import "slices"

// ExcludedCategory is the subject category label that removes a course from
// the cumulative GPA. Such courses still count toward the top-tier ratio.
const ExcludedCategory = "GPA計算対象外科目"

// GradePoints maps a letter grade to its point value. Its keys are the set of
// letter grades; any other grade string is ignored by both passes.
type GradePoints map[string]float64

// DefaultGradePoints returns the 4.3 scale used when no map is supplied.
func DefaultGradePoints() GradePoints {
	return GradePoints{
		"A+": 4.3,
		"A":  4.0,
		"B":  3.0,
		"C":  2.0,
		"D":  1.0,
	}
}

// IsLetter reports whether grade is a key of g.
func (g GradePoints) IsLetter(grade string) bool {
	_, ok := g[grade]
	return ok
}

// Points returns the point value for grade.
func (g GradePoints) Points(grade string) (float64, bool) {
	p, ok := g[grade]
	return p, ok
}

// Policy holds the fixed label sets that drive record eligibility.
type Policy struct {
	// ExcludedCategory removes a record from the GPA pass only.
	ExcludedCategory string
	// PassFail lists grade markers that are never point-weighted.
	PassFail []string
	// TopTier lists the grades counted in the ratio numerator.
	TopTier []string
}

// DefaultPolicy returns the label sets of the registrar export format.
func DefaultPolicy() Policy {
	return Policy{
		ExcludedCategory: ExcludedCategory,
		PassFail:         []string{"P", "F", "合格", "不合格"},
		TopTier:          []string{"A+", "A"},
	}
}

func (p Policy) isZero() bool {
	return p.ExcludedCategory == "" && len(p.PassFail) == 0 && len(p.TopTier) == 0
}

// IsPassFail reports whether grade is a pass/fail marker.
func (p Policy) IsPassFail(grade string) bool { return slices.Contains(p.PassFail, grade) }

// IsTopTier reports whether grade counts toward the ratio numerator.
func (p Policy) IsTopTier(grade string) bool { return slices.Contains(p.TopTier, grade) }

// IsExcluded reports whether category removes a record from the GPA pass.
func (p Policy) IsExcluded(category string) bool {
	return p.ExcludedCategory != "" && category == p.ExcludedCategory
}

// GPAEligible reports whether r takes part in the cumulative GPA.
func GPAEligible(r Record, points GradePoints, p Policy) bool {
	return !p.IsPassFail(r.Grade) && points.IsLetter(r.Grade) && !p.IsExcluded(r.Category)
}

// RatioEligible reports whether r takes part in the top-tier ratio
// denominator. Unlike GPAEligible it ignores the subject category.
func RatioEligible(r Record, points GradePoints, p Policy) bool {
	return !p.IsPassFail(r.Grade) && points.IsLetter(r.Grade)
}
