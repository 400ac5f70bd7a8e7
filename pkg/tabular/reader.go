// Package tabular reads and writes the spreadsheet-facing row format. CSV
// is the interchange encoding; the column set matches the assessment
// workbook layout so exported files re-import cleanly.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
)

// Core columns, in canonical order.
var coreHeader = []string{
	"Activity", "Pressure", "Preventive_Control", "Escalation_Factor",
	"Central_Problem", "Protective_Mitigation", "Consequence",
	"Likelihood", "Severity", "Risk_Level",
}

// stageHeader is the extended column set emitted by the generator: one
// likelihood/severity pair per sub-connection plus the derived overall pair.
var stageHeader = func() []string {
	h := make([]string, 0, 2*risk.NumStages+2)
	for i := 1; i <= risk.NumStages; i++ {
		h = append(h, fmt.Sprintf("Likelihood_%d", i), fmt.Sprintf("Severity_%d", i))
	}
	return append(h, "Overall_Likelihood", "Overall_Severity")
}()

// Read parses a CSV stream into a table. The header is validated for the
// four mandatory columns before any row is read; column order is free and
// names are matched case-insensitively. Unknown columns are ignored.
func Read(r io.Reader) (*bowtie.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := bowtie.CheckColumns(header); err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	score := func(record []string, name string) int {
		v, err := strconv.Atoi(field(record, name))
		if err != nil {
			return 0
		}
		return v
	}

	table := &bowtie.Table{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := bowtie.Row{
			Activity:             field(record, "Activity"),
			Pressure:             field(record, "Pressure"),
			PreventiveControl:    field(record, "Preventive_Control"),
			EscalationFactor:     field(record, "Escalation_Factor"),
			CentralProblem:       field(record, "Central_Problem"),
			ProtectiveMitigation: field(record, "Protective_Mitigation"),
			Consequence:          field(record, "Consequence"),
			Likelihood:           score(record, "Likelihood"),
			Severity:             score(record, "Severity"),
		}
		for i := 0; i < risk.NumStages; i++ {
			row.Pathway.Likelihoods[i] = score(record, fmt.Sprintf("Likelihood_%d", i+1))
			row.Pathway.Severities[i] = score(record, fmt.Sprintf("Severity_%d", i+1))
		}
		if lvl := field(record, "Risk_Level"); lvl != "" {
			row.RiskLevel = risk.ParseLevel(lvl)
		} else {
			row.Rescore()
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
