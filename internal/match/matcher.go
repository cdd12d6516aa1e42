package match

import (
	"context"
	"log/slog"

	"trialmatch/internal/domain"
)

// Matcher resolves eligibility in both directions over an injected
// catalog source.
type Matcher struct {
	src    domain.CatalogSource
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given catalog source.
func NewMatcher(src domain.CatalogSource, logger *slog.Logger) *Matcher {
	return &Matcher{src: src, logger: logger}
}

// ProgramMatches is the outcome of screening every candidate against
// one program.
type ProgramMatches struct {
	Program  domain.Program     `json:"program"`
	Eligible []domain.Candidate `json:"eligible"`
	Screened int                `json:"screened"`
}

// CandidateMatches is the outcome of screening one candidate against
// every program.
type CandidateMatches struct {
	Candidate domain.Candidate `json:"candidate"`
	Eligible  []domain.Program `json:"eligible"`
	Screened  int              `json:"screened"`
}

// Eligible reports whether the candidate satisfies the program's
// criteria. Both lookup directions reduce to this one predicate.
func Eligible(p domain.Program, c domain.Candidate) bool {
	return BuildClauses(p.Criteria).Eval(c)
}

// EligibleCandidates screens every candidate against the program with
// the given id. An unknown id surfaces ErrProgramNotFound; a known
// program matching no one returns an empty Eligible slice.
func (m *Matcher) EligibleCandidates(ctx context.Context, programID string) (*ProgramMatches, error) {
	p, err := m.src.ProgramByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	candidates, err := m.src.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	clauses := BuildClauses(p.Criteria)
	res := &ProgramMatches{Program: *p, Screened: len(candidates)}
	for _, c := range candidates {
		if clauses.Eval(c) {
			res.Eligible = append(res.Eligible, c)
		}
	}

	m.logger.Debug("screened candidates for program",
		"program_id", p.ProgramID, "screened", res.Screened, "eligible", len(res.Eligible))
	return res, nil
}

// EligiblePrograms screens the candidate with the given id against
// every program. An unknown id surfaces ErrCandidateNotFound.
func (m *Matcher) EligiblePrograms(ctx context.Context, personID string) (*CandidateMatches, error) {
	c, err := m.src.CandidateByID(ctx, personID)
	if err != nil {
		return nil, err
	}
	programs, err := m.src.Programs(ctx)
	if err != nil {
		return nil, err
	}

	res := &CandidateMatches{Candidate: *c, Screened: len(programs)}
	for _, p := range programs {
		if BuildClauses(p.Criteria).Eval(*c) {
			res.Eligible = append(res.Eligible, p)
		}
	}

	m.logger.Debug("screened programs for candidate",
		"person_id", c.PersonID, "screened", res.Screened, "eligible", len(res.Eligible))
	return res, nil
}
