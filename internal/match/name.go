package match

import (
	"context"
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"trialmatch/internal/domain"
)

// NameStrategy scores a user-supplied query against a catalog name.
// Score returns 0-100 and ok when the pair counts as a match.
type NameStrategy interface {
	Score(query, name string) (score int, ok bool)
	Name() string
}

// FuzzyStrategy matches names by weighted-ratio similarity, tolerating
// typos and partial names.
type FuzzyStrategy struct {
	Threshold int
}

func (s FuzzyStrategy) Score(query, name string) (int, bool) {
	score := fuzzy.WRatio(strings.ToLower(query), strings.ToLower(name))
	return score, score >= s.Threshold
}

func (s FuzzyStrategy) Name() string { return "fuzzy" }

// SubstringStrategy matches when the query is a case-insensitive
// substring of the name.
type SubstringStrategy struct{}

func (SubstringStrategy) Score(query, name string) (int, bool) {
	if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
		return 100, true
	}
	return 0, false
}

func (SubstringStrategy) Name() string { return "substring" }

// NewNameStrategy builds a strategy from its configured name.
func NewNameStrategy(kind string, threshold int) (NameStrategy, error) {
	switch kind {
	case "fuzzy":
		return FuzzyStrategy{Threshold: threshold}, nil
	case "substring":
		return SubstringStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown name strategy %q", kind)
	}
}

// Finder resolves free-text names to catalog records using a pluggable
// comparison strategy. Ties on score break toward the lower id so a
// query always resolves the same way.
type Finder struct {
	src      domain.CatalogSource
	strategy NameStrategy
}

// NewFinder creates a finder over the given catalog source.
func NewFinder(src domain.CatalogSource, strategy NameStrategy) *Finder {
	return &Finder{src: src, strategy: strategy}
}

// ProgramByName returns the best-scoring program for the query, with
// its score. No program at or above the strategy's bar surfaces
// ErrNoNameMatch.
func (f *Finder) ProgramByName(ctx context.Context, query string) (*domain.Program, int, error) {
	programs, err := f.src.Programs(ctx)
	if err != nil {
		return nil, 0, err
	}

	best := -1
	bestScore := 0
	for i, p := range programs {
		score, ok := f.strategy.Score(query, p.ProgramName)
		if ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil, 0, domain.NewDomainError("Finder.ProgramByName", domain.ErrNoNameMatch, query)
	}
	return &programs[best], bestScore, nil
}

// PersonByName returns the best-scoring candidate for the query,
// compared against "first last" full names.
func (f *Finder) PersonByName(ctx context.Context, query string) (*domain.Candidate, int, error) {
	candidates, err := f.src.Candidates(ctx)
	if err != nil {
		return nil, 0, err
	}

	best := -1
	bestScore := 0
	for i, c := range candidates {
		score, ok := f.strategy.Score(query, c.FullName())
		if ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil, 0, domain.NewDomainError("Finder.PersonByName", domain.ErrNoNameMatch, query)
	}
	return &candidates[best], bestScore, nil
}
