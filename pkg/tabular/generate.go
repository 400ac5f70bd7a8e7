package tabular

import (
	"math/rand"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
)

// Sample vocabulary for generated datasets. Drawn from marine environmental
// assessments, the original domain of the tool.
var (
	sampleActivities = []string{
		"Agricultural runoff", "Commercial fishing", "Coastal development",
		"Shipping traffic", "Offshore drilling", "Tourism",
	}
	samplePressures = []string{
		"Nutrient loading", "Overexploitation of stocks", "Habitat loss",
		"Chemical contamination", "Noise pollution", "Sediment disturbance",
	}
	sampleControls = []string{
		"Buffer strip regulation", "Catch quota enforcement",
		"Zoning restrictions", "Discharge permits", "",
	}
	sampleEscalations = []string{
		"Extreme rainfall event", "Enforcement budget cuts",
		"Illegal activity", "",
	}
	sampleMitigations = []string{
		"Wetland restoration program with monitoring",
		"Seasonal closure of affected areas",
		"Emergency response and cleanup protocol",
		"",
	}
	sampleConsequences = []string{
		"Algal bloom", "Fish stock collapse", "Seagrass meadow loss",
		"Biodiversity decline", "Beach closure",
	}
)

// Generate synthesizes a scored table of n rows around one central problem.
// The same seed always produces the same table.
func Generate(n int, centralProblem string, seed int64) *bowtie.Table {
	rng := rand.New(rand.NewSource(seed))
	pick := func(vals []string) string {
		return vals[rng.Intn(len(vals))]
	}

	table := &bowtie.Table{Rows: make([]bowtie.Row, n)}
	for i := 0; i < n; i++ {
		row := bowtie.Row{
			Activity:             pick(sampleActivities),
			Pressure:             pick(samplePressures),
			PreventiveControl:    pick(sampleControls),
			EscalationFactor:     pick(sampleEscalations),
			CentralProblem:       centralProblem,
			ProtectiveMitigation: pick(sampleMitigations),
			Consequence:          pick(sampleConsequences),
			Likelihood:           rng.Intn(5) + 1,
			Severity:             rng.Intn(5) + 1,
		}
		for s := 0; s < risk.NumStages; s++ {
			row.Pathway.Likelihoods[s] = rng.Intn(5) + 1
			row.Pathway.Severities[s] = rng.Intn(5) + 1
		}
		row.Rescore()
		table.Rows[i] = row
	}
	return table
}
