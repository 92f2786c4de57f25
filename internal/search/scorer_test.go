package search

import (
	"testing"

	"github.com/conradkoh/raggrep/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseChunk(id string) store.Chunk {
	return store.Chunk{ID: id, FilePath: "src/service/user.go", Type: store.ChunkFunction, StartLine: 1, EndLine: 5}
}

// Increasing any one raw signal, holding the others fixed, never
// decreases the final score.
func TestScorer_MonotonicInSemanticScore(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}

	low := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.2, BM25: 0.3, Vocab: 0.1}, q)
	high := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.8, BM25: 0.3, Vocab: 0.1}, q)
	assert.Greater(t, high.Score, low.Score)
}

func TestScorer_MonotonicInBM25Score(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}

	low := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.1, Vocab: 0.1}, q)
	high := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.9, Vocab: 0.1}, q)
	assert.Greater(t, high.Score, low.Score)
}

func TestScorer_MonotonicInVocabScore(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}

	low := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.1, Vocab: 0.0}, q)
	high := s.Score(ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.1, Vocab: 0.9}, q)
	assert.Greater(t, high.Score, low.Score)
}

// A literal-only match (no semantic/BM25/vocab signal at all) is still
// promoted to at least the floor score.
func TestScorer_LiteralOnlyPromotion_MeetsFloor(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}

	out := s.Score(ScoreInputs{
		Chunk:       baseChunk("a"),
		LiteralOnly: true,
	}, q)
	assert.GreaterOrEqual(t, out.Score, baseLiteralOnlyScore)
}

func TestScorer_LiteralOnly_DoesNotLowerAnAlreadyHigherBase(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}

	out := s.Score(ScoreInputs{
		Chunk:       baseChunk("a"),
		Semantic:    0.9,
		BM25:        0.9,
		Vocab:       0.9,
		LiteralOnly: true,
	}, q)
	assert.Greater(t, out.Score, baseLiteralOnlyScore)
}

// In the literal multiplier table, a high-confidence definition match
// outscores a high-confidence reference match, which outscores no match.
func TestScorer_LiteralMultiplier_DefinitionOutranksReference(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}
	in := ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.5, Vocab: 0.5}

	def := in
	def.LiteralMatches = []store.LiteralMatch{{
		Query: store.DetectedLiteral{Confidence: store.ConfidenceHigh},
		Entry: store.ExtractedLiteral{MatchType: store.MatchDefinition},
	}}
	ref := in
	ref.LiteralMatches = []store.LiteralMatch{{
		Query: store.DetectedLiteral{Confidence: store.ConfidenceHigh},
		Entry: store.ExtractedLiteral{MatchType: store.MatchReference},
	}}
	none := in

	defScore := s.Score(def, q)
	refScore := s.Score(ref, q)
	noneScore := s.Score(none, q)

	assert.Greater(t, defScore.Score, refScore.Score)
	assert.Greater(t, refScore.Score, noneScore.Score)
	assert.Contains(t, defScore.Reasons, "literal:high/definition")
}

func TestScorer_LiteralMultiplier_CappedAtMax(t *testing.T) {
	mult, _ := literalMultiplier([]store.LiteralMatch{
		{Query: store.DetectedLiteral{Confidence: store.ConfidenceHigh}, Entry: store.ExtractedLiteral{MatchType: store.MatchDefinition}},
		{Query: store.DetectedLiteral{Confidence: store.ConfidenceHigh}, Entry: store.ExtractedLiteral{MatchType: store.MatchDefinition}},
	})
	assert.LessOrEqual(t, mult, maxLiteralMultiplier)
}

func TestScorer_NoLiteralMatches_MultiplierIsOne(t *testing.T) {
	mult, reason := literalMultiplier(nil)
	assert.Equal(t, 1.0, mult)
	assert.Empty(t, reason)
}

func TestScorer_ExportBoost_AppliedWhenExported(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}
	in := ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.5, Vocab: 0.5}

	unexported := s.Score(in, q)
	in.Chunk.IsExported = true
	exported := s.Score(in, q)
	assert.Greater(t, exported.Score, unexported.Score)
	assert.Contains(t, exported.Reasons, "exported")
}

func TestScorer_PhraseBoost_AppliedWhenSet(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{}
	in := ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.5, Vocab: 0.5}

	without := s.Score(in, q)
	in.PhraseMatch = true
	with := s.Score(in, q)
	assert.Greater(t, with.Score, without.Score)
}

func TestScorer_ChunkTypeBoost_FunctionQueryBoostsFunctionChunk(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := ParsedQuery{FreeTerms: []string{"function", "session"}}
	in := ScoreInputs{Chunk: baseChunk("a"), Semantic: 0.5, BM25: 0.5, Vocab: 0.5}

	scored := s.Score(in, q)
	baseline := s.Score(in, ParsedQuery{FreeTerms: []string{"session"}})
	assert.Greater(t, scored.Score, baseline.Score)
}

func TestNormalizeScore_MidpointMapsNearHalf(t *testing.T) {
	v := normalizeScore(normalizeMidpoint, normalizeMidpoint)
	assert.InDelta(t, 0.5, v, 0.01)
}

func TestNormalizeScore_MonotonicIncreasing(t *testing.T) {
	low := normalizeScore(1, normalizeMidpoint)
	high := normalizeScore(10, normalizeMidpoint)
	assert.Greater(t, high, low)
}

func TestRankAndSort_OrdersByScoreDescending(t *testing.T) {
	scored := []Scored{
		{Chunk: baseChunk("a"), Score: 0.3},
		{Chunk: baseChunk("b"), Score: 0.9},
		{Chunk: baseChunk("c"), Score: 0.6},
	}
	RankAndSort(scored, map[string]float64{})
	require.Len(t, scored, 3)
	assert.Equal(t, "b", scored[0].Chunk.ID)
	assert.Equal(t, "c", scored[1].Chunk.ID)
	assert.Equal(t, "a", scored[2].Chunk.ID)
}

// Tie-break: equal score orders by semantic score descending, then
// chunk ID ascending.
func TestRankAndSort_TieBreaksOnSemanticThenChunkID(t *testing.T) {
	scored := []Scored{
		{Chunk: baseChunk("z"), Score: 0.5},
		{Chunk: baseChunk("a"), Score: 0.5},
		{Chunk: baseChunk("m"), Score: 0.5},
	}
	semantic := map[string]float64{"z": 0.1, "a": 0.1, "m": 0.9}
	RankAndSort(scored, semantic)
	require.Len(t, scored, 3)
	assert.Equal(t, "m", scored[0].Chunk.ID) // highest semantic wins first
	assert.Equal(t, "a", scored[1].Chunk.ID) // then chunk ID ascending among ties
	assert.Equal(t, "z", scored[2].Chunk.ID)
}
