// Package match implements the eligibility engine. A program's criteria
// compile once into a Clauses predicate, and that single predicate is
// evaluated in both lookup directions, so "candidates for program" and
// "programs for candidate" can never disagree about a pair.
package match

import (
	"fmt"
	"strings"

	"trialmatch/internal/domain"
)

// Clause is one independent eligibility check. All clauses built from a
// criteria set must hold for a candidate to be eligible.
type Clause interface {
	Eval(c domain.Candidate) bool
	// String describes the check for logs and tool output.
	String() string
}

// Clauses is the compiled predicate of a program's criteria.
type Clauses []Clause

// Eval reports whether the candidate satisfies every clause. An empty
// predicate holds vacuously, so a program without criteria accepts
// every candidate.
func (cs Clauses) Eval(c domain.Candidate) bool {
	for _, cl := range cs {
		if !cl.Eval(c) {
			return false
		}
	}
	return true
}

// BuildClauses compiles a criteria set into its predicate. Unset fields
// contribute no clause.
func BuildClauses(cr domain.Criteria) Clauses {
	var cs Clauses

	if cr.MinAge != nil || cr.MaxAge != nil {
		cs = append(cs, ageClause{min: cr.MinAge, max: cr.MaxAge})
	}
	cs = appendRange(cs, "bmi", cr.MinBMI, cr.MaxBMI, func(c domain.Candidate) float64 { return c.BMI })
	cs = appendRange(cs, "hemoglobin_a1c", cr.MinHemoglobinA1C, cr.MaxHemoglobinA1C, func(c domain.Candidate) float64 { return c.HemoglobinA1C })
	cs = appendRange(cs, "egfr", cr.MinEGFR, cr.MaxEGFR, func(c domain.Candidate) float64 { return c.EGFR })

	if len(cr.EligibleGenders) > 0 {
		cs = append(cs, allowClause{field: "gender", allowed: cr.EligibleGenders,
			value: func(c domain.Candidate) string { return c.Gender }})
	}
	if len(cr.SmokingAllowed) > 0 {
		cs = append(cs, allowClause{field: "smoking_status", allowed: cr.SmokingAllowed,
			value: func(c domain.Candidate) string { return c.SmokingStatus }})
	}

	for _, f := range cr.RequiredFlags {
		cs = append(cs, flagClause{flag: f, want: true})
	}
	for _, f := range cr.ExcludedFlags {
		cs = append(cs, flagClause{flag: f, want: false})
	}
	for _, v := range cr.RequiredCancerHistory {
		cs = append(cs, cancerClause{value: v, required: true})
	}
	for _, v := range cr.ExcludedCancerHistory {
		cs = append(cs, cancerClause{value: v, required: false})
	}
	for _, m := range cr.RequiredMedications {
		cs = append(cs, medicationClause{name: m, required: true})
	}
	for _, m := range cr.ExcludedMedications {
		cs = append(cs, medicationClause{name: m, required: false})
	}

	return cs
}

func appendRange(cs Clauses, field string, min, max *float64, value func(domain.Candidate) float64) Clauses {
	if min == nil && max == nil {
		return cs
	}
	return append(cs, rangeClause{field: field, min: min, max: max, value: value})
}

type ageClause struct {
	min, max *int
}

func (a ageClause) Eval(c domain.Candidate) bool {
	if a.min != nil && c.Age < *a.min {
		return false
	}
	if a.max != nil && c.Age > *a.max {
		return false
	}
	return true
}

func (a ageClause) String() string {
	return boundsString("age", intBound(a.min), intBound(a.max))
}

type rangeClause struct {
	field    string
	min, max *float64
	value    func(domain.Candidate) float64
}

func (r rangeClause) Eval(c domain.Candidate) bool {
	v := r.value(c)
	if r.min != nil && v < *r.min {
		return false
	}
	if r.max != nil && v > *r.max {
		return false
	}
	return true
}

func (r rangeClause) String() string {
	return boundsString(r.field, floatBound(r.min), floatBound(r.max))
}

type allowClause struct {
	field   string
	allowed []string
	value   func(domain.Candidate) string
}

func (a allowClause) Eval(c domain.Candidate) bool {
	v := a.value(c)
	for _, allowed := range a.allowed {
		if v == allowed {
			return true
		}
	}
	return false
}

func (a allowClause) String() string {
	return fmt.Sprintf("%s in {%s}", a.field, strings.Join(a.allowed, ", "))
}

type flagClause struct {
	flag domain.ConditionFlag
	want bool
}

func (f flagClause) Eval(c domain.Candidate) bool {
	return c.Conditions[f.flag] == f.want
}

func (f flagClause) String() string {
	if f.want {
		return fmt.Sprintf("has %s", f.flag)
	}
	return fmt.Sprintf("no %s", f.flag)
}

// cancerClause compares the candidate's single-valued cancer history
// against one token. Every required or excluded token contributes its
// own clause, so two required tokens reject every candidate.
type cancerClause struct {
	value    string
	required bool
}

func (cc cancerClause) Eval(c domain.Candidate) bool {
	return (c.CancerHistory == cc.value) == cc.required
}

func (cc cancerClause) String() string {
	if cc.required {
		return fmt.Sprintf("cancer_history is %s", cc.value)
	}
	return fmt.Sprintf("cancer_history is not %s", cc.value)
}

// medicationClause matches by raw substring against the candidate's
// free-form medications text, so "metformin" matches "metformin 500mg".
type medicationClause struct {
	name     string
	required bool
}

func (m medicationClause) Eval(c domain.Candidate) bool {
	return strings.Contains(c.Medications, m.name) == m.required
}

func (m medicationClause) String() string {
	if m.required {
		return fmt.Sprintf("takes %s", m.name)
	}
	return fmt.Sprintf("not taking %s", m.name)
}

func boundsString(field, min, max string) string {
	switch {
	case min != "" && max != "":
		return fmt.Sprintf("%s between %s and %s", field, min, max)
	case min != "":
		return fmt.Sprintf("%s >= %s", field, min)
	default:
		return fmt.Sprintf("%s <= %s", field, max)
	}
}

func intBound(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func floatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
