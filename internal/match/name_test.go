package match

import (
	"context"
	"errors"
	"testing"

	"trialmatch/internal/domain"
)

func TestFuzzyFindsTypoedName(t *testing.T) {
	f := NewFinder(testSource(), FuzzyStrategy{Threshold: 60})

	c, score, err := f.PersonByName(context.Background(), "jon smith")
	if err != nil {
		t.Fatal(err)
	}
	if c.PersonID != "P012" {
		t.Errorf("got %s, want P012", c.PersonID)
	}
	if score < 60 {
		t.Errorf("score = %d, want >= 60", score)
	}
}

func TestFuzzyExactName(t *testing.T) {
	f := NewFinder(testSource(), FuzzyStrategy{Threshold: 60})

	c, score, err := f.PersonByName(context.Background(), "Maria Garcia")
	if err != nil {
		t.Fatal(err)
	}
	if c.PersonID != "P010" {
		t.Errorf("got %s, want P010", c.PersonID)
	}
	if score != 100 {
		t.Errorf("exact name score = %d, want 100", score)
	}
}

func TestFuzzyNoMatch(t *testing.T) {
	f := NewFinder(testSource(), FuzzyStrategy{Threshold: 60})

	_, _, err := f.PersonByName(context.Background(), "zzz nonexistent")
	if !errors.Is(err, domain.ErrNoNameMatch) {
		t.Errorf("got %v, want ErrNoNameMatch", err)
	}
}

func TestFuzzyProgramByName(t *testing.T) {
	f := NewFinder(testSource(), FuzzyStrategy{Threshold: 60})

	p, _, err := f.ProgramByName(context.Background(), "diabetes study")
	if err != nil {
		t.Fatal(err)
	}
	if p.ProgramID != "CP001" {
		t.Errorf("got %s, want CP001", p.ProgramID)
	}
}

func TestSubstringStrategy(t *testing.T) {
	f := NewFinder(testSource(), SubstringStrategy{})
	ctx := context.Background()

	p, score, err := f.ProgramByName(ctx, "HYPERTENSION")
	if err != nil {
		t.Fatal(err)
	}
	if p.ProgramID != "CP002" {
		t.Errorf("got %s, want CP002", p.ProgramID)
	}
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}

	// Substring is strict: a typo does not match.
	_, _, err = f.PersonByName(ctx, "jon smith")
	if !errors.Is(err, domain.ErrNoNameMatch) {
		t.Errorf("got %v, want ErrNoNameMatch", err)
	}
}

func TestNewNameStrategy(t *testing.T) {
	s, err := NewNameStrategy("fuzzy", 60)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "fuzzy" {
		t.Errorf("got %s, want fuzzy", s.Name())
	}

	s, err = NewNameStrategy("substring", 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "substring" {
		t.Errorf("got %s, want substring", s.Name())
	}

	if _, err := NewNameStrategy("soundex", 0); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
