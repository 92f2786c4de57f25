package search

import (
	"math"
	"sort"
	"strings"

	"github.com/conradkoh/raggrep/internal/store"
)

// ScoreInputs bundles the raw per-chunk signals the Scorer fuses. Semantic
// is the raw cosine similarity of unit vectors, unnormalized; BM25 and
// Vocab are expected already normalized to [0,1]. Callers (the
// SearchEngine) own that normalization.
type ScoreInputs struct {
	Chunk    store.Chunk
	Summary  store.FileSummary
	Semantic float64
	BM25     float64
	Vocab    float64

	// LiteralMatches are query literals that matched this chunk, either
	// against its extracted identifiers (definition/reference) or, when
	// LiteralOnly is set, only against the file's vocabulary/path.
	LiteralMatches []store.LiteralMatch
	// LiteralOnly marks a chunk that matched purely on an unindexed
	// literal (no embedding/BM25 signal at all): it is floored at
	// baseLiteralOnlyScore before boosts.
	LiteralOnly bool

	PhraseMatch bool // every free-text term appears contiguously in content
}

// Weights are the three additive fusion weights.
type Weights struct {
	Semantic float64
	BM25     float64
	Vocab    float64
}

// DefaultWeights returns the default (W_sem, W_bm25, W_vocab) = (0.6, 0.25, 0.15).
func DefaultWeights() Weights {
	return Weights{Semantic: 0.6, BM25: 0.25, Vocab: 0.15}
}

const (
	baseLiteralOnlyScore = 0.3
	maxLiteralMultiplier = 3.0
	normalizeMidpoint    = 3.0

	pathBoostValue      = 0.05
	fileTypeBoostValue  = 0.03
	chunkTypeBoostValue = 0.05
	exportBoostValue    = 0.04
	phraseBoostValue    = 0.08
)

// literalMultiplierTable is the (confidence, matchType) -> multiplier
// lookup, capped at maxLiteralMultiplier.
var literalMultiplierTable = map[store.Confidence]map[store.MatchType]float64{
	store.ConfidenceHigh: {
		store.MatchDefinition: 3.0,
		store.MatchReference:  2.0,
		store.MatchLiteral:    2.0,
	},
	store.ConfidenceMedium: {
		store.MatchDefinition: 2.0,
		store.MatchReference:  1.5,
		store.MatchLiteral:    1.5,
	},
	store.ConfidenceLow: {
		store.MatchDefinition: 1.2,
		store.MatchReference:  1.2,
		store.MatchLiteral:    1.2,
	},
}

// Scored is one fully-scored chunk, ready for top-k selection.
type Scored struct {
	Chunk   store.Chunk
	Score   float64
	Reasons []string // human-readable boost breakdown
}

// Scorer implements the additive fusion formula:
//
//	base    = W_sem*semantic + W_bm25*bm25 + W_vocab*vocab
//	boosted = base * literalMultiplier
//	final   = boosted + pathBoost + fileTypeBoost + chunkTypeBoost + exportBoost + phraseBoost
//
// literalMultiplier defaults to 1.0 when no literal matched this chunk.
// A LiteralOnly chunk (matched on an identifier but carrying no
// semantic/BM25/vocab signal) is floored at baseLiteralOnlyScore before
// boosts are layered on, guaranteeing it still surfaces.
type Scorer struct {
	Weights Weights
}

// NewScorer builds a Scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{Weights: w}
}

// Score computes the final fused score for one chunk.
func (s *Scorer) Score(in ScoreInputs, query ParsedQuery) Scored {
	w := s.Weights
	base := w.Semantic*in.Semantic + w.BM25*in.BM25 + w.Vocab*in.Vocab

	if in.LiteralOnly && base < baseLiteralOnlyScore {
		base = baseLiteralOnlyScore
	}

	mult, reason := literalMultiplier(in.LiteralMatches)
	boosted := base * mult

	var reasons []string
	if reason != "" {
		reasons = append(reasons, reason)
	}

	final := boosted
	if in.Summary.PathContext.Layer != "" && queryMentions(query, in.Summary.PathContext.Layer) {
		final += pathBoostValue
		reasons = append(reasons, "path:layer")
	}
	if in.Summary.PathContext.Domain != "" && queryMentions(query, in.Summary.PathContext.Domain) {
		final += pathBoostValue
		reasons = append(reasons, "path:domain")
	}
	if fileTypeMatchesQuery(in.Chunk.FilePath, query) {
		final += fileTypeBoostValue
		reasons = append(reasons, "filetype")
	}
	if chunkTypeMatchesQuery(in.Chunk.Type, query) {
		final += chunkTypeBoostValue
		reasons = append(reasons, "chunktype")
	}
	if in.Chunk.IsExported {
		final += exportBoostValue
		reasons = append(reasons, "exported")
	}
	if in.PhraseMatch {
		final += phraseBoostValue
		reasons = append(reasons, "phrase")
	}

	return Scored{Chunk: in.Chunk, Score: final, Reasons: reasons}
}

// literalMultiplier picks the strongest (confidence, matchType) boost
// among every literal match on this chunk, capped at maxLiteralMultiplier.
func literalMultiplier(matches []store.LiteralMatch) (float64, string) {
	if len(matches) == 0 {
		return 1.0, ""
	}
	best := 1.0
	var bestConf store.Confidence
	var bestMatch store.MatchType
	for _, m := range matches {
		byConf, ok := literalMultiplierTable[m.Query.Confidence]
		if !ok {
			continue
		}
		v, ok := byConf[m.Entry.MatchType]
		if !ok {
			continue
		}
		if v > best {
			best = v
			bestConf = m.Query.Confidence
			bestMatch = m.Entry.MatchType
		}
	}
	if best > maxLiteralMultiplier {
		best = maxLiteralMultiplier
	}
	if best == 1.0 {
		return 1.0, ""
	}
	return best, "literal:" + string(bestConf) + "/" + string(bestMatch)
}

// normalizeScore squashes an unbounded raw fusion score into (0,1) via a
// logistic curve centered so that raw==midpoint maps to ~0.5.
func normalizeScore(raw, midpoint float64) float64 {
	if midpoint == 0 {
		midpoint = normalizeMidpoint
	}
	return 1.0 / (1.0 + math.Exp(-raw/midpoint+1))
}

func queryMentions(q ParsedQuery, term string) bool {
	term = strings.ToLower(term)
	for _, t := range q.FreeTerms {
		if t == term {
			return true
		}
	}
	for _, l := range q.Literals {
		if strings.ToLower(l.Value) == term {
			return true
		}
	}
	return false
}

func fileTypeMatchesQuery(filePath string, q ParsedQuery) bool {
	ext := extOf(filePath)
	if ext == "" {
		return false
	}
	for _, t := range q.FreeTerms {
		if t == ext {
			return true
		}
	}
	return false
}

func extOf(filePath string) string {
	i := strings.LastIndexByte(filePath, '.')
	if i < 0 || i == len(filePath)-1 {
		return ""
	}
	return strings.ToLower(filePath[i+1:])
}

var chunkTypeQueryHints = map[store.ChunkType][]string{
	store.ChunkFunction:  {"function", "func", "method"},
	store.ChunkClass:     {"class", "struct"},
	store.ChunkInterface: {"interface"},
	store.ChunkEnum:      {"enum"},
	store.ChunkVariable:  {"variable", "var", "const"},
}

func chunkTypeMatchesQuery(ct store.ChunkType, q ParsedQuery) bool {
	hints, ok := chunkTypeQueryHints[ct]
	if !ok {
		return false
	}
	for _, h := range hints {
		if queryMentions(q, h) {
			return true
		}
	}
	return false
}

// RankAndSort applies the tie-break (semantic descending, then chunk ID
// ascending) and sorts in place, highest score first.
func RankAndSort(scored []Scored, semanticByID map[string]float64) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		si, sj := semanticByID[scored[i].Chunk.ID], semanticByID[scored[j].Chunk.ID]
		if si != sj {
			return si > sj
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
}
