package search

import "strings"

// ExpandedTerm is one term produced by lexicon expansion, carrying the
// confidence weight the Scorer applies to matches on it.
type ExpandedTerm struct {
	Term   string
	Weight float64
}

// Weight grades: the first synonym listed for a term is its strongest
// substitute, synonyms in the middle of the list are
// moderate, and the tail is weak — a cheap proxy for "how directly does
// this synonym stand in for the original" without hand-grading every
// entry in CodeSynonyms individually.
const (
	WeightStrong   = 0.9
	WeightModerate = 0.6
	WeightWeak     = 0.3
)

// LexiconOptions controls how far and how wide Expand walks.
type LexiconOptions struct {
	MaxDepth      int // expansion hops from the original terms; capped at 1
	IncludeWeak   bool
	MaxTerms      int
	MinTermLength int
}

// DefaultLexiconOptions returns the default expansion tuning.
func DefaultLexiconOptions() LexiconOptions {
	return LexiconOptions{
		MaxDepth:      1,
		IncludeWeak:   true,
		MaxTerms:      24,
		MinTermLength: 2,
	}
}

// Expand takes the tokens of a parsed query and returns the originals
// followed by their graded expansions, in deterministic
// originals-then-discovery order: output is not re-sorted by weight, so
// a caller replaying the same query always sees the same term list in
// the same order.
func Expand(terms []string, opts LexiconOptions) []ExpandedTerm {
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}

	out := make([]ExpandedTerm, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))

	for _, t := range terms {
		lower := strings.ToLower(t)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, ExpandedTerm{Term: lower, Weight: 1.0})
	}

	for _, t := range terms {
		lower := strings.ToLower(t)
		synonyms := GetSynonyms(lower)
		for i, syn := range synonyms {
			synLower := strings.ToLower(syn)
			if len(synLower) < opts.MinTermLength {
				continue
			}
			if _, dup := seen[synLower]; dup {
				continue
			}
			weight := weightOf(i, len(synonyms))
			if weight == WeightWeak && !opts.IncludeWeak {
				continue
			}
			seen[synLower] = struct{}{}
			out = append(out, ExpandedTerm{Term: synLower, Weight: weight})
			if opts.MaxTerms > 0 && len(out) >= opts.MaxTerms {
				return out
			}
		}
	}

	return out
}

// weightOf grades position i of n synonyms: first entry is strong, the
// following third is moderate, the remainder weak.
func weightOf(i, n int) float64 {
	if i == 0 {
		return WeightStrong
	}
	if n <= 1 {
		return WeightStrong
	}
	if float64(i) < float64(n)/3.0+1 {
		return WeightModerate
	}
	return WeightWeak
}
