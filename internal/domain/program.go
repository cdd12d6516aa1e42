package domain

import "strings"

// ConditionFlag is one of the fixed boolean condition attributes tracked
// for every candidate. Any condition token outside this vocabulary is a
// cancer-history value, not a flag.
type ConditionFlag string

const (
	CondDiabetes      ConditionFlag = "diabetes"
	CondHypertension  ConditionFlag = "hypertension"
	CondHeartDisease  ConditionFlag = "heart_disease"
	CondAsthma        ConditionFlag = "asthma"
	CondCOPD          ConditionFlag = "copd"
	CondKidneyDisease ConditionFlag = "kidney_disease"
)

// ConditionFlags lists the fixed vocabulary in canonical order.
var ConditionFlags = []ConditionFlag{
	CondDiabetes,
	CondHypertension,
	CondHeartDisease,
	CondAsthma,
	CondCOPD,
	CondKidneyDisease,
}

// IsConditionFlag reports whether token names one of the fixed boolean
// condition attributes.
func IsConditionFlag(token string) bool {
	for _, f := range ConditionFlags {
		if string(f) == token {
			return true
		}
	}
	return false
}

// Criteria is the eligibility criteria set of a clinical program. Every
// field is independently optional; an unset field imposes no constraint.
//
// Condition tokens are classified when the catalog is loaded: tokens in
// the fixed ConditionFlag vocabulary land in RequiredFlags/ExcludedFlags,
// everything else in RequiredCancerHistory/ExcludedCancerHistory. The
// split is part of the schema so nothing downstream has to re-infer the
// token kind from string membership.
type Criteria struct {
	MinAge *int `json:"min_age,omitempty"`
	MaxAge *int `json:"max_age,omitempty"`

	MinBMI           *float64 `json:"min_bmi,omitempty"`
	MaxBMI           *float64 `json:"max_bmi,omitempty"`
	MinHemoglobinA1C *float64 `json:"min_hemoglobin_a1c,omitempty"`
	MaxHemoglobinA1C *float64 `json:"max_hemoglobin_a1c,omitempty"`
	MinEGFR          *float64 `json:"min_egfr,omitempty"`
	MaxEGFR          *float64 `json:"max_egfr,omitempty"`

	EligibleGenders []string `json:"eligible_genders,omitempty"`
	SmokingAllowed  []string `json:"smoking_allowed,omitempty"`

	RequiredFlags         []ConditionFlag `json:"required_flags,omitempty"`
	ExcludedFlags         []ConditionFlag `json:"excluded_flags,omitempty"`
	RequiredCancerHistory []string        `json:"required_cancer_history,omitempty"`
	ExcludedCancerHistory []string        `json:"excluded_cancer_history,omitempty"`

	RequiredMedications []string `json:"required_medications,omitempty"`
	ExcludedMedications []string `json:"excluded_medications,omitempty"`
}

// Empty reports whether no criterion is populated, in which case every
// candidate is eligible.
func (c Criteria) Empty() bool {
	return c.MinAge == nil && c.MaxAge == nil &&
		c.MinBMI == nil && c.MaxBMI == nil &&
		c.MinHemoglobinA1C == nil && c.MaxHemoglobinA1C == nil &&
		c.MinEGFR == nil && c.MaxEGFR == nil &&
		len(c.EligibleGenders) == 0 && len(c.SmokingAllowed) == 0 &&
		len(c.RequiredFlags) == 0 && len(c.ExcludedFlags) == 0 &&
		len(c.RequiredCancerHistory) == 0 && len(c.ExcludedCancerHistory) == 0 &&
		len(c.RequiredMedications) == 0 && len(c.ExcludedMedications) == 0
}

// Program is a clinical trial offering with eligibility criteria.
type Program struct {
	ProgramID   string   `json:"program_id"`
	ProgramName string   `json:"program_name"`
	Phase       string   `json:"phase"`
	Description string   `json:"description"`
	Criteria    Criteria `json:"criteria"`
}

// Candidate is a person record with fixed attributes evaluated against
// program criteria. Catalog records are read-only after load.
type Candidate struct {
	PersonID      string  `json:"person_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	BMI           float64 `json:"bmi"`
	SmokingStatus string  `json:"smoking_status"`
	HemoglobinA1C float64 `json:"hemoglobin_a1c"`
	EGFR          float64 `json:"egfr"`

	// Conditions holds the fixed boolean condition attributes, parsed
	// from the catalog's yes/no values.
	Conditions map[ConditionFlag]bool `json:"conditions"`

	// CancerHistory is a free-form value, empty when none.
	CancerHistory string `json:"cancer_history"`

	// Medications is a free-form text blob. Criteria match it by raw
	// substring, so a medication name contained in another will match.
	Medications string `json:"medications"`
}

// FullName returns "first last", the form name lookup matches against.
func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
