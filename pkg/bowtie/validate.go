package bowtie

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Canonical column names of the tabular format. Matching is
// case-insensitive on import.
var (
	RequiredColumns = []string{"Activity", "Pressure", "Central_Problem", "Consequence"}
	OptionalColumns = []string{
		"Preventive_Control", "Escalation_Factor", "Protective_Mitigation",
		"Likelihood", "Severity", "Risk_Level",
	}
)

// ValidationError reports a structural problem with an input table. The
// caller decides whether to abort or prompt; nothing is coerced silently
// beyond the documented default-fill policy.
type ValidationError struct {
	MissingColumns []string
	RowErrors      []RowError
}

// RowError pins a field problem to a row index.
type RowError struct {
	Row   int
	Field string
	Cause string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingColumns) > 0 {
		parts = append(parts, fmt.Sprintf("missing required columns: %s",
			strings.Join(e.MissingColumns, ", ")))
	}
	for _, re := range e.RowErrors {
		parts = append(parts, fmt.Sprintf("row %d: %s %s", re.Row, re.Field, re.Cause))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// CheckColumns verifies the four mandatory columns are present in a header.
// On failure the returned *ValidationError names every missing column.
func CheckColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.ToLower(strings.TrimSpace(col))] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[strings.ToLower(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{MissingColumns: missing}
	}
	return nil
}

// ValidateRow checks one row against its struct tags.
func ValidateRow(row *Row) error {
	if row == nil {
		return errors.New("row cannot be nil")
	}
	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("field %s failed %s validation", f.Field(), f.Tag())
		}
		return err
	}
	return nil
}

// Normalizer fills policy defaults into incomplete tables. The random
// source is seeded per batch so test runs are deterministic.
type Normalizer struct {
	rng *rand.Rand
}

// NewNormalizer creates a normalizer whose numeric defaults are drawn from
// the given seed.
func NewNormalizer(seed int64) *Normalizer {
	return &Normalizer{rng: rand.New(rand.NewSource(seed))}
}

// Normalize returns a new table with defaults filled and risk levels
// recomputed. The input table is never mutated. A *ValidationError is
// returned when any row is missing a mandatory text field.
func (n *Normalizer) Normalize(t *Table) (*Table, error) {
	verr := &ValidationError{}
	out := &Table{Rows: make([]Row, len(t.Rows))}

	for i, row := range t.Rows {
		for _, check := range []struct {
			field string
			value string
		}{
			{"Activity", row.Activity},
			{"Pressure", row.Pressure},
			{"Central_Problem", row.CentralProblem},
			{"Consequence", row.Consequence},
		} {
			if strings.TrimSpace(check.value) == "" {
				verr.RowErrors = append(verr.RowErrors, RowError{
					Row: i, Field: check.field, Cause: "is required",
				})
			}
		}

		// Optional text fields default to empty string; only the numeric
		// pair gets a synthesized value.
		if row.Likelihood < 1 || row.Likelihood > 5 {
			row.Likelihood = n.randomScore()
		}
		if row.Severity < 1 || row.Severity > 5 {
			row.Severity = n.randomScore()
		}
		row.Rescore()
		out.Rows[i] = row
	}

	if len(verr.RowErrors) > 0 {
		return nil, verr
	}
	return out, nil
}

func (n *Normalizer) randomScore() int {
	return n.rng.Intn(5) + 1
}
