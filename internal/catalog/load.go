package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"trialmatch/internal/domain"
)

var programColumns = []string{
	"program_id", "program_name", "phase", "description",
	"min_age", "max_age", "eligible_genders",
	"required_conditions", "excluded_conditions",
	"min_bmi", "max_bmi", "smoking_allowed",
	"min_hemoglobin_a1c", "max_hemoglobin_a1c", "min_egfr", "max_egfr",
	"required_medications", "excluded_medications",
}

var personColumns = []string{
	"person_id", "first_name", "last_name", "age", "gender", "bmi",
	"smoking_status", "hemoglobin_a1c", "egfr",
	"diabetes", "hypertension", "heart_disease", "asthma", "copd", "kidney_disease",
	"cancer_history", "medications",
}

// flagColumns are the person columns holding yes/no condition flags, in
// table order. They mirror domain.ConditionFlags.
var flagColumns = []string{
	"diabetes", "hypertension", "heart_disease", "asthma", "copd", "kidney_disease",
}

const insertProgram = `INSERT INTO programs (program_id, program_name, phase, description,
	min_age, max_age, eligible_genders, required_conditions, excluded_conditions,
	min_bmi, max_bmi, smoking_allowed, min_hemoglobin_a1c, max_hemoglobin_a1c,
	min_egfr, max_egfr, required_medications, excluded_medications)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertPerson = `INSERT INTO persons (person_id, first_name, last_name, age, gender, bmi,
	smoking_status, hemoglobin_a1c, egfr, diabetes, hypertension, heart_disease,
	asthma, copd, kidney_disease, cancer_history, medications)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) loadPrograms(path string) (int, error) {
	rows, err := readCSV(path, programColumns)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertProgram)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range rows {
		id := rec["program_id"]
		minAge, err := optInt(rec["min_age"])
		if err != nil {
			return 0, criteriaErr(id, "min_age", rec["min_age"])
		}
		maxAge, err := optInt(rec["max_age"])
		if err != nil {
			return 0, criteriaErr(id, "max_age", rec["max_age"])
		}
		bounds := make([]any, 0, 6)
		for _, f := range []string{"min_bmi", "max_bmi", "min_hemoglobin_a1c", "max_hemoglobin_a1c", "min_egfr", "max_egfr"} {
			v, err := optFloat(rec[f])
			if err != nil {
				return 0, criteriaErr(id, f, rec[f])
			}
			bounds = append(bounds, v)
		}

		_, err = stmt.Exec(id, rec["program_name"], rec["phase"], rec["description"],
			minAge, maxAge, rec["eligible_genders"],
			rec["required_conditions"], rec["excluded_conditions"],
			bounds[0], bounds[1], rec["smoking_allowed"], bounds[2], bounds[3],
			bounds[4], bounds[5], rec["required_medications"], rec["excluded_medications"])
		if err != nil {
			return 0, fmt.Errorf("insert program %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

func (s *Store) loadPersons(path string) (int, error) {
	rows, err := readCSV(path, personColumns)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertPerson)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range rows {
		id := rec["person_id"]
		age, err := strconv.Atoi(rec["age"])
		if err != nil {
			return 0, criteriaErr(id, "age", rec["age"])
		}
		var vitals [3]float64
		for i, f := range []string{"bmi", "hemoglobin_a1c", "egfr"} {
			v, err := strconv.ParseFloat(rec[f], 64)
			if err != nil {
				return 0, criteriaErr(id, f, rec[f])
			}
			vitals[i] = v
		}
		flags := make([]any, 0, len(flagColumns))
		for _, f := range flagColumns {
			v := rec[f]
			if v != "yes" && v != "no" {
				return 0, criteriaErr(id, f, v)
			}
			flags = append(flags, v)
		}

		args := []any{id, rec["first_name"], rec["last_name"], age, rec["gender"],
			vitals[0], rec["smoking_status"], vitals[1], vitals[2]}
		args = append(args, flags...)
		args = append(args, rec["cancer_history"], rec["medications"])

		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("insert person %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// readCSV reads a headered CSV file and returns one column-name-keyed
// map per record. All wanted columns must be present in the header;
// extra columns are ignored.
func readCSV(path string, columns []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogLoad, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %s", domain.ErrCatalogLoad, path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s missing column %q", domain.ErrCatalogLoad, path, col)
		}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %s", domain.ErrCatalogLoad, path, err)
		}
		m := make(map[string]string, len(columns))
		for _, col := range columns {
			m[col] = strings.TrimSpace(rec[index[col]])
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// optInt parses an optional integer cell. Empty means unset (NULL).
func optInt(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// optFloat parses an optional float cell. Empty means unset (NULL).
func optFloat(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// splitList splits a semicolon-separated list cell, dropping empties.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func criteriaErr(id, field, value string) error {
	return domain.NewDomainError("catalog.load", domain.ErrInvalidCriteria,
		fmt.Sprintf("%s: %s=%q", id, field, value))
}
