package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
activities:
  - id: ACT01
    name: Agricultural runoff
  - id: ACT02
    name: Commercial fishing
pressures:
  - id: PRE01
    name: Nutrient loading
  - id: PRE02
    name: Nutrient enrichment of coastal waters
controls:
  - id: CTL01
    name: Buffer strip regulation
mitigations:
  - id: MIT01
    name: Wetland restoration
consequences:
  - id: CON01
    name: Algal bloom
`

func TestParse(t *testing.T) {
	v, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Len(t, v.Activities, 2)
	assert.Equal(t, "ACT01", v.Activities[0].ID)
	assert.Equal(t, 7, v.TermCount())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("activities: {not: [a, list"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does/not/exist.yaml")
	assert.Error(t, err)
}

func TestSuggestRanksByOverlap(t *testing.T) {
	v, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	linker := NewLinker(v, 0)

	matches := linker.Suggest("pressure", "nutrient loading from farms", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "PRE01", matches[0].Term.ID, "exact-phrase term ranks first")

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
}

func TestSuggestLimit(t *testing.T) {
	v, _ := Parse([]byte(sampleYAML))
	linker := NewLinker(v, 0.01)

	matches := linker.Suggest("pressure", "nutrient", 1)
	assert.Len(t, matches, 1)
}

func TestSuggestUnknownCategory(t *testing.T) {
	v, _ := Parse([]byte(sampleYAML))
	linker := NewLinker(v, 0)
	assert.Nil(t, linker.Suggest("weather", "storm", 5))
}

func TestSuggestEmptyText(t *testing.T) {
	v, _ := Parse([]byte(sampleYAML))
	linker := NewLinker(v, 0)
	assert.Nil(t, linker.Suggest("pressure", "  a  ", 5), "short tokens are dropped")
}

func TestSuggestDeterministic(t *testing.T) {
	v, _ := Parse([]byte(sampleYAML))
	linker := NewLinker(v, 0)

	first := linker.Suggest("pressure", "nutrient levels", 5)
	second := linker.Suggest("pressure", "nutrient levels", 5)
	assert.Equal(t, first, second)
}
