package risk

import (
	"encoding/json"
	"fmt"
)

// Level is the categorical risk rating derived from likelihood and severity.
type Level int

const (
	Low Level = iota
	Medium
	High
)

// Thresholds on the likelihood*severity product. The product ranges
// from 1 (1x1) to 25 (5x5).
const (
	lowMax  = 6  // product <= 6 is Low
	highMin = 16 // product >= 16 is High
)

// String returns the display name of the level
func (l Level) String() string {
	switch l {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Unknown"
	}
}

// ParseLevel converts a string to a Level. Unrecognized input defaults to
// Medium so a damaged file still round-trips to something renderable.
func ParseLevel(s string) Level {
	switch s {
	case "Low", "low":
		return Low
	case "High", "high":
		return High
	default:
		return Medium
	}
}

// MarshalJSON implements json.Marshaler
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("risk level must be a string: %w", err)
	}
	*l = ParseLevel(s)
	return nil
}

// ForScore computes the level for a likelihood/severity pair, both on the
// 1-5 scale. Out-of-range inputs are clamped before scoring.
func ForScore(likelihood, severity int) Level {
	product := Clamp(likelihood) * Clamp(severity)
	switch {
	case product <= lowMax:
		return Low
	case product >= highMin:
		return High
	default:
		return Medium
	}
}

// ForScores computes levels for equal-length likelihood and severity slices.
func ForScores(likelihoods, severities []int) ([]Level, error) {
	if len(likelihoods) != len(severities) {
		return nil, fmt.Errorf("length mismatch: %d likelihoods vs %d severities",
			len(likelihoods), len(severities))
	}
	levels := make([]Level, len(likelihoods))
	for i := range likelihoods {
		levels[i] = ForScore(likelihoods[i], severities[i])
	}
	return levels, nil
}

// Clamp forces a score onto the 1-5 scale.
func Clamp(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
