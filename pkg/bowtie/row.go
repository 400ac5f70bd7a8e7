package bowtie

import (
	"strings"

	"github.com/ecorisk/bowtie/pkg/risk"
)

// Row is one causal chain instance: activity through pressure and barriers
// to a consequence, routed through the central problem.
type Row struct {
	Activity             string `json:"activity" validate:"required,max=200"`
	Pressure             string `json:"pressure" validate:"required,max=200"`
	PreventiveControl    string `json:"preventive_control" validate:"max=500"`
	EscalationFactor     string `json:"escalation_factor" validate:"max=500"`
	CentralProblem       string `json:"central_problem" validate:"required,max=200"`
	ProtectiveMitigation string `json:"protective_mitigation" validate:"max=500"`
	Consequence          string `json:"consequence" validate:"required,max=200"`

	// Headline pair used for the simple (non-pathway) rating.
	Likelihood int `json:"likelihood" validate:"omitempty,min=1,max=5"`
	Severity   int `json:"severity" validate:"omitempty,min=1,max=5"`

	// Per-stage pairs for pathway scoring. Zero means unset.
	Pathway risk.Pathway `json:"pathway,omitempty"`

	// Derived fields, recomputed on normalization.
	OverallLikelihood int        `json:"overall_likelihood,omitempty"`
	OverallSeverity   int        `json:"overall_severity,omitempty"`
	RiskLevel         risk.Level `json:"risk_level"`
}

// HasPathway reports whether any per-stage value was provided.
func (r *Row) HasPathway() bool {
	for i := 0; i < risk.NumStages; i++ {
		if r.Pathway.Likelihoods[i] > 0 || r.Pathway.Severities[i] > 0 {
			return true
		}
	}
	return false
}

// Rescore recomputes the derived risk fields from whatever likelihood and
// severity values are present. Pathway values, when given, drive the
// overall pair; otherwise the headline pair stands alone.
func (r *Row) Rescore() {
	if r.HasPathway() {
		r.OverallLikelihood = r.Pathway.OverallLikelihood()
		r.OverallSeverity = r.Pathway.OverallSeverity()
		r.RiskLevel = risk.ForScore(r.OverallLikelihood, r.OverallSeverity)
		return
	}
	r.RiskLevel = risk.ForScore(r.Likelihood, r.Severity)
}

// QualifyingMitigation reports whether the row's protective mitigation is
// substantial enough to earn its own barrier node. Short strings are almost
// always placeholders ("TBD", "none") and are rejected.
func (r *Row) QualifyingMitigation() bool {
	return len(strings.TrimSpace(r.ProtectiveMitigation)) > MitigationMinLength
}

// MitigationMinLength is the data-quality cutoff for mitigation text.
// A mitigation qualifies only when its trimmed length exceeds this.
const MitigationMinLength = 10

// Table is an ordered collection of rows. Edits replace the whole table;
// rows are never mutated in place by the pipeline.
type Table struct {
	Rows []Row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return &Table{Rows: rows}
}

// CentralProblems returns the distinct central problem labels in first-seen
// order. A well-formed table has exactly one.
func (t *Table) CentralProblems() []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		name := strings.TrimSpace(row.CentralProblem)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Summary aggregates the table's risk profile.
type Summary struct {
	Rows     int            `json:"rows"`
	ByLevel  map[string]int `json:"by_level"`
	Problems []string       `json:"central_problems"`
}

// Summarize computes the risk profile of the table as currently scored.
func (t *Table) Summarize() Summary {
	byLevel := map[string]int{
		risk.Low.String():    0,
		risk.Medium.String(): 0,
		risk.High.String():   0,
	}
	for _, row := range t.Rows {
		byLevel[row.RiskLevel.String()]++
	}
	return Summary{
		Rows:     len(t.Rows),
		ByLevel:  byLevel,
		Problems: t.CentralProblems(),
	}
}
