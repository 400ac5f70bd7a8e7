package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
)

const sampleCSV = `Activity,Pressure,Central_Problem,Consequence,Likelihood,Severity
Farming,Nutrient runoff,Eutrophication,Algal bloom,4,5
Shipping,Noise pollution,Eutrophication,Biodiversity decline,1,2
`

func TestReadScoresMissingLevel(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "Farming", table.Rows[0].Activity)
	assert.Equal(t, risk.High, table.Rows[0].RiskLevel, "missing Risk_Level column is recomputed")
	assert.Equal(t, risk.Low, table.Rows[1].RiskLevel)
}

func TestReadKeepsExplicitLevel(t *testing.T) {
	csv := `Activity,Pressure,Central_Problem,Consequence,Likelihood,Severity,Risk_Level
Farming,Nutrient runoff,Eutrophication,Algal bloom,1,1,High
`
	table, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, risk.High, table.Rows[0].RiskLevel,
		"an explicit level is trusted over the score product")
}

func TestReadCaseInsensitiveColumns(t *testing.T) {
	csv := "activity,PRESSURE,central_problem,Consequence\nA,P,CP,C\n"
	table, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "P", table.Rows[0].Pressure)
}

func TestReadMissingColumns(t *testing.T) {
	_, err := Read(strings.NewReader("Activity,Consequence\nA,C\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Central_Problem")
}

func TestRoundTrip(t *testing.T) {
	original, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, original))

	reread, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, original.Rows, reread.Rows)
}

func TestRoundTripExtended(t *testing.T) {
	table := Generate(5, "Eutrophication", 99)

	var buf bytes.Buffer
	require.NoError(t, WriteExtended(&buf, table))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Contains(t, header, "Likelihood_1")
	assert.Contains(t, header, "Severity_6")
	assert.Contains(t, header, "Overall_Likelihood")

	reread, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, reread.Rows, 5)
	for i := range table.Rows {
		assert.Equal(t, table.Rows[i].Pathway, reread.Rows[i].Pathway)
		assert.Equal(t, table.Rows[i].RiskLevel, reread.Rows[i].RiskLevel)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first := Generate(20, "Eutrophication", 7)
	second := Generate(20, "Eutrophication", 7)
	assert.Equal(t, first, second)

	different := Generate(20, "Eutrophication", 8)
	assert.NotEqual(t, first, different)
}

func TestGenerateRowsAreScored(t *testing.T) {
	table := Generate(30, "Habitat loss", 1)
	require.Len(t, table.Rows, 30)
	for i, row := range table.Rows {
		assert.Equal(t, "Habitat loss", row.CentralProblem, "row %d", i)
		assert.NoError(t, bowtie.ValidateRow(&table.Rows[i]))
		assert.Equal(t, row.Pathway.OverallSeverity(), row.OverallSeverity)
	}
}
