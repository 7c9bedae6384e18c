// Package gpa computes the cumulative grade-point average and the share of
// credits earned at the top tier from a list of course records.
//
// The two metrics use different eligibility rules. The GPA pass drops
// pass/fail grades, grades outside the point map and the excluded subject
// category. The ratio pass drops only pass/fail grades and grades outside the
// point map. Records with an undefined credit count are skipped in every sum.
// A metric whose credit total is not positive is undefined rather than zero.
package gpa

// Record is one course result.
type Record struct {
	Grade    string
	Credits  Value
	Category string
}

// Totals carries the full-precision sums behind a Result.
type Totals struct {
	Rows           int
	GPARows        int
	GPACredits     float64
	GPAPoints      float64
	RatioRows      int
	RatioCredits   float64
	TopTierCredits float64
}

// Result is the outcome of Aggregate. GPA and Ratio are independently
// defined or undefined.
type Result struct {
	GPA    Value
	Ratio  Value
	Totals Totals
}

// Aggregate runs both passes over records. A nil or empty points map falls
// back to DefaultGradePoints, and a zero Policy falls back to DefaultPolicy.
func Aggregate(records []Record, points GradePoints, policy Policy) Result {
	if len(points) == 0 {
		points = DefaultGradePoints()
	}
	if policy.isZero() {
		policy = DefaultPolicy()
	}
	res := Result{Totals: Totals{Rows: len(records)}}
	res.GPA = cumulativeGPA(records, points, policy, &res.Totals)
	res.Ratio = topTierRatio(records, points, policy, &res.Totals)
	return res
}

func cumulativeGPA(records []Record, points GradePoints, policy Policy, t *Totals) Value {
	var credits, weighted float64
	for _, r := range records {
		if !GPAEligible(r, points, policy) {
			continue
		}
		t.GPARows++
		c, ok := r.Credits.Get()
		if !ok {
			continue
		}
		gp, _ := points.Points(r.Grade)
		credits += c
		weighted += gp * c
	}
	t.GPACredits = credits
	t.GPAPoints = weighted
	if credits > 0 {
		return Some(weighted / credits)
	}
	return None()
}

func topTierRatio(records []Record, points GradePoints, policy Policy, t *Totals) Value {
	var denom, numer float64
	for _, r := range records {
		if !RatioEligible(r, points, policy) {
			continue
		}
		t.RatioRows++
		c, ok := r.Credits.Get()
		if !ok {
			continue
		}
		denom += c
		if policy.IsTopTier(r.Grade) {
			numer += c
		}
	}
	t.RatioCredits = denom
	t.TopTierCredits = numer
	if denom > 0 {
		return Some(numer / denom)
	}
	return None()
}
