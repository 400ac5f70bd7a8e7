package vocab

import (
	"sort"
	"strings"
)

// Match pairs a vocabulary term with its similarity to the queried text.
type Match struct {
	Term  Term    `json:"term"`
	Score float64 `json:"score"`
}

// Linker suggests vocabulary terms for free-text entries by token overlap.
// It is deterministic: the same input always produces the same ranking, so
// suggestions are reproducible across sessions.
type Linker struct {
	vocab    *Vocabulary
	minScore float64
}

// NewLinker creates a linker over the given vocabulary. Matches scoring
// below minScore are dropped; zero uses a sane default.
func NewLinker(v *Vocabulary, minScore float64) *Linker {
	if minScore <= 0 {
		minScore = 0.2
	}
	return &Linker{vocab: v, minScore: minScore}
}

// Suggest ranks terms of the given category against free text. Limit caps
// the result; zero means no cap.
func (l *Linker) Suggest(category, text string, limit int) []Match {
	var terms []Term
	switch category {
	case "activity":
		terms = l.vocab.Activities
	case "pressure":
		terms = l.vocab.Pressures
	case "preventive_control":
		terms = l.vocab.Controls
	case "protective_mitigation":
		terms = l.vocab.Mitigations
	case "consequence":
		terms = l.vocab.Consequences
	default:
		return nil
	}

	queryTokens := tokenize(text)
	if len(queryTokens) == 0 {
		return nil
	}

	var matches []Match
	for _, term := range terms {
		score := jaccard(queryTokens, tokenize(term.Name))
		if score >= l.minScore {
			matches = append(matches, Match{Term: term, Score: score})
		}
	}

	// Stable order: score descending, then name for ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Term.Name < matches[j].Term.Name
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:()[]\"'")
		if len(f) < 3 {
			// Articles and abbreviations add noise, not signal.
			continue
		}
		tokens[f] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
