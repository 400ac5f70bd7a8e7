package risk

import "math"

// The six sub-connections of a bowtie pathway, in causal order.
const (
	StageActivityPressure = iota
	StagePressureControl
	StageControlEscalation
	StageEscalationProblem
	StageProblemMitigation
	StageMitigationConsequence

	NumStages = 6
)

// NeutralScore is substituted for a missing stage value (zero or
// out-of-band) so an incomplete pathway still scores.
const NeutralScore = 3

// Pathway compression constants. These reproduce the scoring of the
// original assessment tool; they are tuning values, not a derived model,
// and must not be changed without re-baselining existing outputs.
const (
	pathwayScale    = 2.5
	pathwayExponent = 0.3
)

// Pathway holds the per-stage likelihood/severity pairs of one bowtie row.
// Index with the Stage* constants.
type Pathway struct {
	Likelihoods [NumStages]int
	Severities  [NumStages]int
}

// fillMissing replaces unset stage values (<=0) with the neutral score and
// clamps the rest onto the 1-5 scale.
func fillMissing(vals [NumStages]int) [NumStages]int {
	var out [NumStages]int
	for i, v := range vals {
		if v <= 0 {
			out[i] = NeutralScore
			continue
		}
		out[i] = Clamp(v)
	}
	return out
}

// OverallLikelihood compresses the multiplicative six-stage chain back onto
// the 1-5 scale: round(2.5 * (L1 * prod(Li/5, i=2..6))^0.3), clamped.
// The first stage enters raw; the rest as fractions of 5, so weakening any
// stage never raises the result (monotone in every stage).
func (p Pathway) OverallLikelihood() int {
	l := fillMissing(p.Likelihoods)

	product := float64(l[0])
	for i := 1; i < NumStages; i++ {
		product *= float64(l[i]) / 5.0
	}

	combined := pathwayScale * math.Pow(product, pathwayExponent)
	return Clamp(int(math.Round(combined)))
}

// OverallSeverity is the worst stage severity: one catastrophic stage makes
// the whole pathway severe regardless of the others.
func (p Pathway) OverallSeverity() int {
	s := fillMissing(p.Severities)
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// OverallLevel scores the whole pathway.
func (p Pathway) OverallLevel() Level {
	return ForScore(p.OverallLikelihood(), p.OverallSeverity())
}
