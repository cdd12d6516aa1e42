package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"trialmatch/internal/domain"
	"trialmatch/internal/match"
)

// memCatalog is a CatalogSource over fixed slices.
type memCatalog struct {
	programs   []domain.Program
	candidates []domain.Candidate
}

func (m *memCatalog) Programs(ctx context.Context) ([]domain.Program, error) {
	return m.programs, nil
}

func (m *memCatalog) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	return m.candidates, nil
}

func (m *memCatalog) ProgramByID(ctx context.Context, id string) (*domain.Program, error) {
	for i := range m.programs {
		if m.programs[i].ProgramID == id {
			return &m.programs[i], nil
		}
	}
	return nil, domain.NewDomainError("memCatalog.ProgramByID", domain.ErrProgramNotFound, id)
}

func (m *memCatalog) CandidateByID(ctx context.Context, id string) (*domain.Candidate, error) {
	for i := range m.candidates {
		if m.candidates[i].PersonID == id {
			return &m.candidates[i], nil
		}
	}
	return nil, domain.NewDomainError("memCatalog.CandidateByID", domain.ErrCandidateNotFound, id)
}

func (m *memCatalog) SearchProgramsByName(ctx context.Context, query string) (*domain.Program, error) {
	for i := range m.programs {
		if strings.Contains(strings.ToLower(m.programs[i].ProgramName), strings.ToLower(query)) {
			return &m.programs[i], nil
		}
	}
	return nil, domain.NewDomainError("memCatalog.SearchProgramsByName", domain.ErrProgramNotFound, query)
}

func enrollmentFixture() *memCatalog {
	minAge := 18
	maxAge := 65
	return &memCatalog{
		programs: []domain.Program{
			{ProgramID: "CP001", ProgramName: "Type 2 Diabetes Management Study", Phase: "Phase 2",
				Criteria: domain.Criteria{
					MinAge: &minAge, MaxAge: &maxAge,
					EligibleGenders: []string{"female"},
					RequiredFlags:   []domain.ConditionFlag{domain.CondDiabetes},
				}},
			{ProgramID: "CP003", ProgramName: "Healthy Volunteers Registry", Phase: "Phase 1"},
		},
		candidates: []domain.Candidate{
			{PersonID: "P010", FirstName: "Maria", LastName: "Garcia", Age: 40, Gender: "female",
				Conditions: map[domain.ConditionFlag]bool{domain.CondDiabetes: true}},
			{PersonID: "P012", FirstName: "John", LastName: "Smith", Age: 55, Gender: "male",
				Conditions: map[domain.ConditionFlag]bool{}},
		},
	}
}

func enrollmentRegistry(t *testing.T) *Registry {
	t.Helper()
	src := enrollmentFixture()
	logger := testLogger()
	matcher := match.NewMatcher(src, logger)
	finder := match.NewFinder(src, match.FuzzyStrategy{Threshold: 60})

	r := NewRegistry(logger)
	if err := RegisterEnrollmentTools(r, src, matcher, finder, logger); err != nil {
		t.Fatal(err)
	}
	return r
}

func runTool(t *testing.T, r *Registry, name, params string) *domain.ToolResult {
	t.Helper()
	tl, err := r.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tl.Execute(context.Background(), json.RawMessage(params))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestListAllPrograms(t *testing.T) {
	r := enrollmentRegistry(t)

	res := runTool(t, r, "list_all_programs", `{}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}

	var out []programSummary
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("output is not a program list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d programs, want 2", len(out))
	}
	if out[0].Criteria == "" {
		t.Error("criteria description missing")
	}
	if out[1].Criteria != "no eligibility restrictions" {
		t.Errorf("empty criteria described as %q", out[1].Criteria)
	}
}

func TestFindProgramByName(t *testing.T) {
	r := enrollmentRegistry(t)

	res := runTool(t, r, "find_program_by_name", `{"name": "diabetes study"}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "CP001") {
		t.Errorf("wrong program: %s", res.Content)
	}

	res = runTool(t, r, "find_program_by_name", `{"name": "zzz nonexistent"}`)
	if !res.IsError {
		t.Error("expected error result for unmatched name")
	}
}

func TestFindPersonByName(t *testing.T) {
	r := enrollmentRegistry(t)

	// A typoed name still resolves through the fuzzy strategy.
	res := runTool(t, r, "find_person_by_name", `{"name": "jon smith"}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "P012") {
		t.Errorf("wrong person: %s", res.Content)
	}
}

func TestFindCandidatesForProgram(t *testing.T) {
	r := enrollmentRegistry(t)

	res := runTool(t, r, "find_candidates_for_program", `{"program_id": "CP001"}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "P010") || strings.Contains(res.Content, "P012") {
		t.Errorf("unexpected eligible set: %s", res.Content)
	}

	// Unknown id is an error result, not an empty list.
	res = runTool(t, r, "find_candidates_for_program", `{"program_id": "CP999"}`)
	if !res.IsError {
		t.Error("expected error result for unknown program id")
	}
}

func TestFindProgramsForCandidate(t *testing.T) {
	r := enrollmentRegistry(t)

	res := runTool(t, r, "find_programs_for_candidate", `{"person_id": "P012"}`)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	// John only fits the unrestricted registry.
	if !strings.Contains(res.Content, "CP003") || strings.Contains(res.Content, "CP001") {
		t.Errorf("unexpected eligible set: %s", res.Content)
	}

	res = runTool(t, r, "find_programs_for_candidate", `{"person_id": "P999"}`)
	if !res.IsError {
		t.Error("expected error result for unknown person id")
	}
}

func TestEnrollmentToolSchemasValidate(t *testing.T) {
	r := enrollmentRegistry(t)

	// Registered with a logger, so params are schema-checked.
	res := runTool(t, r, "find_candidates_for_program", `{"program_id": 42}`)
	if !res.IsError {
		t.Error("expected schema validation failure for non-string id")
	}
}
