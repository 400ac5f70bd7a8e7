package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
)

// Write emits the core column set.
func Write(w io.Writer, table *bowtie.Table) error {
	return write(w, table, false)
}

// WriteExtended emits the core columns plus the per-stage pairs and the
// derived overall pair, matching the generator's workbook layout.
func WriteExtended(w io.Writer, table *bowtie.Table) error {
	return write(w, table, true)
}

func write(w io.Writer, table *bowtie.Table, extended bool) error {
	cw := csv.NewWriter(w)

	header := coreHeader
	if extended {
		header = append(append([]string{}, coreHeader...), stageHeader...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range table.Rows {
		record := []string{
			row.Activity, row.Pressure, row.PreventiveControl,
			row.EscalationFactor, row.CentralProblem,
			row.ProtectiveMitigation, row.Consequence,
			strconv.Itoa(row.Likelihood), strconv.Itoa(row.Severity),
			row.RiskLevel.String(),
		}
		if extended {
			for s := 0; s < risk.NumStages; s++ {
				record = append(record,
					strconv.Itoa(row.Pathway.Likelihoods[s]),
					strconv.Itoa(row.Pathway.Severities[s]))
			}
			record = append(record,
				strconv.Itoa(row.OverallLikelihood),
				strconv.Itoa(row.OverallSeverity))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
