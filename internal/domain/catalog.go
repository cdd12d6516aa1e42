package domain

import "context"

// CatalogSource provides read access to the program and candidate
// catalogs. Implementations load the reference data once; all methods
// are safe for concurrent use and return records in stable id order.
type CatalogSource interface {
	// Programs returns every program in program_id order.
	Programs(ctx context.Context) ([]Program, error)
	// Candidates returns every candidate in person_id order.
	Candidates(ctx context.Context) ([]Candidate, error)
	// ProgramByID returns the program with the given id, or
	// ErrProgramNotFound.
	ProgramByID(ctx context.Context, id string) (*Program, error)
	// CandidateByID returns the candidate with the given id, or
	// ErrCandidateNotFound.
	CandidateByID(ctx context.Context, id string) (*Candidate, error)
	// SearchProgramsByName returns the first program whose name contains
	// the query (case-insensitive), or ErrProgramNotFound.
	SearchProgramsByName(ctx context.Context, query string) (*Program, error)
}
