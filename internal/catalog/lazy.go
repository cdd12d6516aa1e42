package catalog

import (
	"context"
	"sync"

	"trialmatch/internal/domain"
)

// Lazy defers catalog loading until first use and then shares the single
// loaded Store across all callers. Concurrent readers are safe: the
// store is immutable after load.
type Lazy struct {
	once  sync.Once
	build func() (*Store, error)
	store *Store
	err   error
}

// NewLazy wraps a store constructor for load-on-first-use.
func NewLazy(build func() (*Store, error)) *Lazy {
	return &Lazy{build: build}
}

// get loads the store on first call and returns the shared instance.
func (l *Lazy) get() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = l.build()
	})
	return l.store, l.err
}

// Close closes the store if it was ever loaded.
func (l *Lazy) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

func (l *Lazy) Programs(ctx context.Context) ([]domain.Program, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.Programs(ctx)
}

func (l *Lazy) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.Candidates(ctx)
}

func (l *Lazy) ProgramByID(ctx context.Context, id string) (*domain.Program, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.ProgramByID(ctx, id)
}

func (l *Lazy) CandidateByID(ctx context.Context, id string) (*domain.Candidate, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.CandidateByID(ctx, id)
}

func (l *Lazy) SearchProgramsByName(ctx context.Context, query string) (*domain.Program, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.SearchProgramsByName(ctx, query)
}

// Compile-time interface check.
var _ domain.CatalogSource = (*Lazy)(nil)
