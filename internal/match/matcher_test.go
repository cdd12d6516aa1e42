package match

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"trialmatch/internal/domain"
)

// memSource is a CatalogSource over in-memory slices, kept in id order
// like the real store.
type memSource struct {
	programs   []domain.Program
	candidates []domain.Candidate
}

func (m *memSource) Programs(ctx context.Context) ([]domain.Program, error) {
	return m.programs, nil
}

func (m *memSource) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	return m.candidates, nil
}

func (m *memSource) ProgramByID(ctx context.Context, id string) (*domain.Program, error) {
	for i := range m.programs {
		if m.programs[i].ProgramID == id {
			return &m.programs[i], nil
		}
	}
	return nil, domain.NewDomainError("memSource.ProgramByID", domain.ErrProgramNotFound, id)
}

func (m *memSource) CandidateByID(ctx context.Context, id string) (*domain.Candidate, error) {
	for i := range m.candidates {
		if m.candidates[i].PersonID == id {
			return &m.candidates[i], nil
		}
	}
	return nil, domain.NewDomainError("memSource.CandidateByID", domain.ErrCandidateNotFound, id)
}

func (m *memSource) SearchProgramsByName(ctx context.Context, query string) (*domain.Program, error) {
	return nil, domain.NewDomainError("memSource.SearchProgramsByName", domain.ErrProgramNotFound, query)
}

func person(id, first, last string, age int, gender string, conds map[domain.ConditionFlag]bool, meds string) domain.Candidate {
	if conds == nil {
		conds = map[domain.ConditionFlag]bool{}
	}
	return domain.Candidate{
		PersonID: id, FirstName: first, LastName: last,
		Age: age, Gender: gender, BMI: 27, SmokingStatus: "never",
		HemoglobinA1C: 6.0, EGFR: 90,
		Conditions: conds, Medications: meds,
	}
}

func testSource() *memSource {
	diabetic := map[domain.ConditionFlag]bool{domain.CondDiabetes: true}
	hypertensive := map[domain.ConditionFlag]bool{domain.CondHypertension: true}

	return &memSource{
		programs: []domain.Program{
			{ProgramID: "CP001", ProgramName: "Type 2 Diabetes Management Study",
				Criteria: domain.Criteria{
					MinAge: iptr(18), MaxAge: iptr(65),
					EligibleGenders: []string{"female"},
					RequiredFlags:   []domain.ConditionFlag{domain.CondDiabetes},
				}},
			{ProgramID: "CP002", ProgramName: "Hypertension Control Trial",
				Criteria: domain.Criteria{
					MinAge:              iptr(40),
					RequiredFlags:       []domain.ConditionFlag{domain.CondHypertension},
					ExcludedMedications: []string{"metformin"},
				}},
			{ProgramID: "CP003", ProgramName: "Healthy Volunteers Registry"},
			{ProgramID: "CP004", ProgramName: "Centenarian Study",
				Criteria: domain.Criteria{MinAge: iptr(100)}},
		},
		candidates: []domain.Candidate{
			person("P010", "Maria", "Garcia", 40, "female", diabetic, "metformin 850mg"),
			person("P011", "Ruth", "Chen", 70, "female", diabetic, "sitagliptin 100mg"),
			person("P012", "John", "Smith", 55, "male", hypertensive, "metformin 500mg; lisinopril 10mg"),
			person("P014", "Laura", "Bianchi", 58, "female", hypertensive, "lisinopril 20mg"),
		},
	}
}

func newTestMatcher() *Matcher {
	return NewMatcher(testSource(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func eligibleIDs(res *ProgramMatches) []string {
	ids := make([]string, 0, len(res.Eligible))
	for _, c := range res.Eligible {
		ids = append(ids, c.PersonID)
	}
	return ids
}

func TestEligibleCandidates(t *testing.T) {
	m := newTestMatcher()

	res, err := m.EligibleCandidates(context.Background(), "CP001")
	if err != nil {
		t.Fatal(err)
	}
	if res.Screened != 4 {
		t.Errorf("screened = %d, want 4", res.Screened)
	}
	// P010 fits every criterion. P011 is over the age cap, P012 is the
	// wrong gender, P014 has no diabetes.
	if got := eligibleIDs(res); !reflect.DeepEqual(got, []string{"P010"}) {
		t.Errorf("eligible = %v, want [P010]", got)
	}
}

func TestMedicationExclusionInMatch(t *testing.T) {
	m := newTestMatcher()

	res, err := m.EligibleCandidates(context.Background(), "CP002")
	if err != nil {
		t.Fatal(err)
	}
	// P012 is excluded by the metformin substring despite matching
	// everything else; P014 stays in.
	if got := eligibleIDs(res); !reflect.DeepEqual(got, []string{"P014"}) {
		t.Errorf("eligible = %v, want [P014]", got)
	}
}

func TestNoCriteriaMatchesEveryone(t *testing.T) {
	m := newTestMatcher()

	res, err := m.EligibleCandidates(context.Background(), "CP003")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Eligible) != res.Screened {
		t.Errorf("program without criteria matched %d of %d", len(res.Eligible), res.Screened)
	}
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	m := newTestMatcher()

	res, err := m.EligibleCandidates(context.Background(), "CP004")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Eligible) != 0 {
		t.Errorf("expected no eligible candidates, got %v", eligibleIDs(res))
	}
}

func TestEligiblePrograms(t *testing.T) {
	m := newTestMatcher()

	res, err := m.EligiblePrograms(context.Background(), "P010")
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(res.Eligible))
	for _, p := range res.Eligible {
		ids = append(ids, p.ProgramID)
	}
	if !reflect.DeepEqual(ids, []string{"CP001", "CP003"}) {
		t.Errorf("eligible = %v, want [CP001 CP003]", ids)
	}
}

func TestUnknownIDs(t *testing.T) {
	m := newTestMatcher()
	ctx := context.Background()

	_, err := m.EligibleCandidates(ctx, "CP999")
	if !errors.Is(err, domain.ErrProgramNotFound) {
		t.Errorf("unknown program: got %v, want ErrProgramNotFound", err)
	}

	_, err = m.EligiblePrograms(ctx, "P999")
	if !errors.Is(err, domain.ErrCandidateNotFound) {
		t.Errorf("unknown person: got %v, want ErrCandidateNotFound", err)
	}
}

// The two lookup directions evaluate the same predicate, so membership
// must agree for every (program, candidate) pair.
func TestDirectionsAgree(t *testing.T) {
	m := newTestMatcher()
	src := testSource()
	ctx := context.Background()

	forward := map[string]map[string]bool{}
	for _, p := range src.programs {
		res, err := m.EligibleCandidates(ctx, p.ProgramID)
		if err != nil {
			t.Fatal(err)
		}
		forward[p.ProgramID] = map[string]bool{}
		for _, c := range res.Eligible {
			forward[p.ProgramID][c.PersonID] = true
		}
	}

	for _, c := range src.candidates {
		res, err := m.EligiblePrograms(ctx, c.PersonID)
		if err != nil {
			t.Fatal(err)
		}
		reverse := map[string]bool{}
		for _, p := range res.Eligible {
			reverse[p.ProgramID] = true
		}
		for _, p := range src.programs {
			if forward[p.ProgramID][c.PersonID] != reverse[p.ProgramID] {
				t.Errorf("pair (%s, %s): directions disagree", p.ProgramID, c.PersonID)
			}
		}
	}
}

func TestRepeatedCallsAreIdentical(t *testing.T) {
	m := newTestMatcher()
	ctx := context.Background()

	first, err := m.EligibleCandidates(ctx, "CP002")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.EligibleCandidates(ctx, "CP002")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated lookups returned different results")
	}
}
