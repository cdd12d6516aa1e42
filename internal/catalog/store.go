// Package catalog loads the clinical program and person reference data
// from CSV into an in-memory SQLite database and serves read-only,
// stable-order queries over it. The catalogs are never mutated after
// load, so a single Store is safe for concurrent readers.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"trialmatch/internal/domain"
)

const schema = `
CREATE TABLE programs (
	program_id           TEXT PRIMARY KEY,
	program_name         TEXT NOT NULL,
	phase                TEXT NOT NULL,
	description          TEXT NOT NULL,
	min_age              INTEGER,
	max_age              INTEGER,
	eligible_genders     TEXT NOT NULL DEFAULT '',
	required_conditions  TEXT NOT NULL DEFAULT '',
	excluded_conditions  TEXT NOT NULL DEFAULT '',
	min_bmi              REAL,
	max_bmi              REAL,
	smoking_allowed      TEXT NOT NULL DEFAULT '',
	min_hemoglobin_a1c   REAL,
	max_hemoglobin_a1c   REAL,
	min_egfr             REAL,
	max_egfr             REAL,
	required_medications TEXT NOT NULL DEFAULT '',
	excluded_medications TEXT NOT NULL DEFAULT ''
);
CREATE TABLE persons (
	person_id      TEXT PRIMARY KEY,
	first_name     TEXT NOT NULL,
	last_name      TEXT NOT NULL,
	age            INTEGER NOT NULL,
	gender         TEXT NOT NULL,
	bmi            REAL NOT NULL,
	smoking_status TEXT NOT NULL,
	hemoglobin_a1c REAL NOT NULL,
	egfr           REAL NOT NULL,
	diabetes       TEXT NOT NULL,
	hypertension   TEXT NOT NULL,
	heart_disease  TEXT NOT NULL,
	asthma         TEXT NOT NULL,
	copd           TEXT NOT NULL,
	kidney_disease TEXT NOT NULL,
	cancer_history TEXT NOT NULL DEFAULT '',
	medications    TEXT NOT NULL DEFAULT ''
);
`

// Store is a CatalogSource backed by an in-memory SQLite database.
// It is constructed once and injected; there is no module-level
// connection. All statements bind values as parameters.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a store and loads both CSV files into it.
// Malformed records (unparseable numeric bounds, condition flags outside
// yes/no) fail the load with domain.ErrInvalidCriteria.
func NewStore(programsCSV, personsCSV string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// The in-memory database must stay on a single connection;
	// database/sql would otherwise open fresh (empty) memory databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	s := &Store{db: db, logger: logger}
	nPrograms, err := s.loadPrograms(programsCSV)
	if err != nil {
		db.Close()
		return nil, domain.WrapOp("catalog.loadPrograms", err)
	}
	nPersons, err := s.loadPersons(personsCSV)
	if err != nil {
		db.Close()
		return nil, domain.WrapOp("catalog.loadPersons", err)
	}

	logger.Info("catalog loaded", "programs", nPrograms, "persons", nPersons)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const programSelect = `SELECT program_id, program_name, phase, description,
	min_age, max_age, eligible_genders, required_conditions, excluded_conditions,
	min_bmi, max_bmi, smoking_allowed, min_hemoglobin_a1c, max_hemoglobin_a1c,
	min_egfr, max_egfr, required_medications, excluded_medications FROM programs`

const personSelect = `SELECT person_id, first_name, last_name, age, gender, bmi,
	smoking_status, hemoglobin_a1c, egfr, diabetes, hypertension, heart_disease,
	asthma, copd, kidney_disease, cancer_history, medications FROM persons`

// Programs implements domain.CatalogSource.
func (s *Store) Programs(ctx context.Context) ([]domain.Program, error) {
	rows, err := s.db.QueryContext(ctx, programSelect+" ORDER BY program_id")
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *p)
	}
	return programs, rows.Err()
}

// Candidates implements domain.CatalogSource.
func (s *Store) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, personSelect+" ORDER BY person_id")
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// ProgramByID implements domain.CatalogSource.
func (s *Store) ProgramByID(ctx context.Context, id string) (*domain.Program, error) {
	row := s.db.QueryRowContext(ctx, programSelect+" WHERE program_id = ?", id)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("Store.ProgramByID", domain.ErrProgramNotFound, id)
	}
	return p, err
}

// CandidateByID implements domain.CatalogSource.
func (s *Store) CandidateByID(ctx context.Context, id string) (*domain.Candidate, error) {
	row := s.db.QueryRowContext(ctx, personSelect+" WHERE person_id = ?", id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("Store.CandidateByID", domain.ErrCandidateNotFound, id)
	}
	return c, err
}

// SearchProgramsByName implements domain.CatalogSource. SQLite LIKE is
// case-insensitive for ASCII, matching the original ILIKE lookup.
func (s *Store) SearchProgramsByName(ctx context.Context, query string) (*domain.Program, error) {
	row := s.db.QueryRowContext(ctx,
		programSelect+" WHERE program_name LIKE ? ORDER BY program_id LIMIT 1",
		"%"+query+"%",
	)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("Store.SearchProgramsByName", domain.ErrProgramNotFound, query)
	}
	return p, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(row scanner) (*domain.Program, error) {
	var (
		p                                domain.Program
		minAge, maxAge                   sql.NullInt64
		minBMI, maxBMI                   sql.NullFloat64
		minA1C, maxA1C, minEGFR, maxEGFR sql.NullFloat64
		genders, reqCond, exclCond       string
		smoking, reqMeds, exclMeds       string
	)
	err := row.Scan(&p.ProgramID, &p.ProgramName, &p.Phase, &p.Description,
		&minAge, &maxAge, &genders, &reqCond, &exclCond,
		&minBMI, &maxBMI, &smoking, &minA1C, &maxA1C,
		&minEGFR, &maxEGFR, &reqMeds, &exclMeds)
	if err != nil {
		return nil, err
	}

	cr := domain.Criteria{
		EligibleGenders:     splitList(genders),
		SmokingAllowed:      splitList(smoking),
		RequiredMedications: splitList(reqMeds),
		ExcludedMedications: splitList(exclMeds),
	}
	if minAge.Valid {
		v := int(minAge.Int64)
		cr.MinAge = &v
	}
	if maxAge.Valid {
		v := int(maxAge.Int64)
		cr.MaxAge = &v
	}
	cr.MinBMI = nullFloat(minBMI)
	cr.MaxBMI = nullFloat(maxBMI)
	cr.MinHemoglobinA1C = nullFloat(minA1C)
	cr.MaxHemoglobinA1C = nullFloat(maxA1C)
	cr.MinEGFR = nullFloat(minEGFR)
	cr.MaxEGFR = nullFloat(maxEGFR)

	cr.RequiredFlags, cr.RequiredCancerHistory = classifyConditions(splitList(reqCond))
	cr.ExcludedFlags, cr.ExcludedCancerHistory = classifyConditions(splitList(exclCond))

	p.Criteria = cr
	return &p, nil
}

func scanCandidate(row scanner) (*domain.Candidate, error) {
	var c domain.Candidate
	flags := make([]string, len(flagColumns))
	err := row.Scan(&c.PersonID, &c.FirstName, &c.LastName, &c.Age, &c.Gender,
		&c.BMI, &c.SmokingStatus, &c.HemoglobinA1C, &c.EGFR,
		&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5],
		&c.CancerHistory, &c.Medications)
	if err != nil {
		return nil, err
	}

	c.Conditions = make(map[domain.ConditionFlag]bool, len(flagColumns))
	for i, col := range flagColumns {
		c.Conditions[domain.ConditionFlag(col)] = flags[i] == "yes"
	}
	return &c, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// classifyConditions splits raw condition tokens into fixed boolean
// flags vs free-form cancer-history values. The split happens here, at
// load time, so the criteria schema carries the token kind explicitly.
func classifyConditions(tokens []string) ([]domain.ConditionFlag, []string) {
	var flags []domain.ConditionFlag
	var cancer []string
	for _, tok := range tokens {
		if domain.IsConditionFlag(tok) {
			flags = append(flags, domain.ConditionFlag(tok))
		} else {
			cancer = append(cancer, tok)
		}
	}
	return flags, cancer
}

// Compile-time interface check.
var _ domain.CatalogSource = (*Store)(nil)
