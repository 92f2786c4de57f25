package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/store"
)

// module is one loaded, read-only on-disk index: the same
// <root>/.raggrep/index/<moduleId>/ tree an index.Engine writes.
// SearchEngine never writes to it.
type module struct {
	root     string
	dir      string
	symbolic *store.SymbolicIndex
	literal  *store.LiteralIndex
	vector   store.VectorStore
}

func (m *module) fileDataPath(relPath string) string {
	return filepath.Join(m.dir, store.EscapeID(relPath)+".data.json")
}

func (m *module) loadFileData(relPath string) (store.ModuleFileData, error) {
	var data store.ModuleFileData
	raw, err := os.ReadFile(m.fileDataPath(relPath))
	if err != nil {
		return data, err
	}
	return data, json.Unmarshal(raw, &data)
}

// Engine is the read-only query path over every module opened with it.
type Engine struct {
	modules  []*module
	embedder capability.EmbeddingProvider
}

// NewEngine builds a SearchEngine. embedder may be nil to force a
// keyword/literal-only search (no vector signal).
func NewEngine(embedder capability.EmbeddingProvider) *Engine {
	return &Engine{embedder: embedder}
}

// AddModule loads the on-disk index for root (a no-op, empty module if
// root has never been indexed).
func (e *Engine) AddModule(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	moduleID := store.EscapeID(absRoot)
	dir := filepath.Join(absRoot, ".raggrep", "index", moduleID)

	symbolic, err := store.LoadSymbolicIndex(filepath.Join(dir, "symbolic"))
	if err != nil {
		return fmt.Errorf("load symbolic index for %q: %w", root, err)
	}

	literalData, err := os.ReadFile(filepath.Join(dir, "literal", "postings.json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read literal postings for %q: %w", root, err)
	}
	literal, err := store.DeserializeLiteralIndex(literalData)
	if err != nil {
		return fmt.Errorf("load literal index for %q: %w", root, err)
	}

	dims := 0
	model := ""
	if e.embedder != nil {
		dims = e.embedder.Dimension()
		model = e.embedder.ModelName()
	}
	vecPath := filepath.Join(dir, "vectors.hnsw")
	onDiskDims, err := store.ReadHNSWStoreDimensions(vecPath)
	if err != nil {
		return fmt.Errorf("read vector metadata for %q: %w", root, err)
	}
	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: maxInt(dims, onDiskDims, 1), Model: model})
	if err != nil {
		return fmt.Errorf("create vector store for %q: %w", root, err)
	}
	if onDiskDims != 0 && onDiskDims == dims {
		if err := vs.Load(vecPath); err != nil {
			return fmt.Errorf("load vector store for %q: %w", root, err)
		}
	}

	e.modules = append(e.modules, &module{root: absRoot, dir: dir, symbolic: symbolic, literal: literal, vector: vs})
	return nil
}

func maxInt(vs ...int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Stats reports aggregate size across every loaded module.
func (e *Engine) Stats() EngineStats {
	var s EngineStats
	s.ModuleCount = len(e.modules)
	for _, m := range e.modules {
		s.FileCount += m.symbolic.Count()
		s.VectorCount += m.vector.Count()
	}
	return s
}

// Close releases every module's vector store.
func (e *Engine) Close() error {
	var firstErr error
	for _, m := range e.modules {
		if err := m.vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Search runs the full query path: parse, expand, find Tier-1 candidate
// files per module, score every candidate chunk, merge across modules
// and return the top-k.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.CandidateFiles <= 0 {
		opts.CandidateFiles = defaultCandidateFiles
	}
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	scorer := NewScorer(weights)

	pq := ParseQuery(query)
	allTerms := make([]string, 0, len(pq.FreeTerms)+len(pq.Literals))
	allTerms = append(allTerms, pq.FreeTerms...)
	for _, l := range pq.Literals {
		allTerms = append(allTerms, strings.ToLower(l.Value))
	}
	expanded := Expand(allTerms, DefaultLexiconOptions())
	expandedTerms := make([]string, len(expanded))
	for i, t := range expanded {
		expandedTerms[i] = t.Term
	}

	var qvec []float32
	if e.embedder != nil {
		v, err := e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		qvec = v
	}

	var scored []Scored
	semanticByID := make(map[string]float64)
	var mismatchOnce sync.Once

	for _, m := range e.modules {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		bm25ByFile := make(map[string]float64)
		for _, sc := range m.symbolic.FindCandidatesScored(expandedTerms, opts.CandidateFiles) {
			bm25ByFile[sc.Summary.FilePath] = normalizeScore(sc.Score, normalizeMidpoint)
		}
		literalFiles := literalMatchFiles(m, pq.Literals)
		literalFiles = append(literalFiles, vocabMatchFiles(m, expandedTerms)...)
		candidateFiles := mergeFileNames(bm25ByFile, literalFiles)

		for _, filePath := range candidateFiles {
			if !matchesFilter(filePath, opts) {
				continue
			}
			fs, ok := m.symbolic.GetFileSummary(filePath)
			if !ok {
				continue
			}
			data, err := m.loadFileData(filePath)
			if err != nil {
				continue
			}
			// A file embedded by another model gets no semantic signal.
			modelOK := e.embedder == nil || data.EmbeddingModel == "" || data.EmbeddingModel == e.embedder.ModelName()
			if !modelOK {
				mismatchOnce.Do(func() {
					slog.Warn("embedding model mismatch; semantic score disabled",
						"indexed", data.EmbeddingModel, "provider", e.embedder.ModelName())
				})
			}
			bm25 := bm25ByFile[filePath]
			fileLiterals := fileLiteralMatches(m, pq.Literals, filePath)

			for i, c := range data.Chunks {
				semantic := 0.0
				if qvec != nil && modelOK && i < len(data.Embeddings) {
					semantic = cosine(qvec, data.Embeddings[i])
				}
				vocab := vocabScore(expanded, c)
				chunkLiterals := literalsForChunk(fileLiterals, c)
				phrase := phraseMatch(pq.FreeTerms, c.Content)

				in := ScoreInputs{
					Chunk:          c,
					Summary:        fs,
					Semantic:       semantic,
					BM25:           bm25,
					Vocab:          vocab,
					LiteralMatches: chunkLiterals,
					LiteralOnly:    semantic == 0 && bm25 == 0 && vocab == 0 && len(chunkLiterals) > 0,
					PhraseMatch:    phrase,
				}
				s := scorer.Score(in, pq)
				scored = append(scored, s)
				semanticByID[c.ID] = semantic
			}
		}
	}

	RankAndSort(scored, semanticByID)
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	out := make([]SearchResult, len(scored))
	for i, s := range scored {
		out[i] = SearchResult{Chunk: s.Chunk, Score: s.Score, Reasons: s.Reasons}
	}
	out = ApplyTestFilePenalty(out)
	out = ApplyPathBoost(out)
	return out, nil
}

func matchesFilter(filePath string, opts SearchOptions) bool {
	if opts.Extension != "" && !strings.HasSuffix(filePath, "."+opts.Extension) {
		return false
	}
	if opts.PathGlob != "" {
		if ok, err := filepath.Match(opts.PathGlob, filePath); err == nil && !ok {
			return false
		}
	}
	return true
}

func mergeFileNames(bm25ByFile map[string]float64, literalFiles []string) []string {
	seen := make(map[string]bool, len(bm25ByFile)+len(literalFiles))
	var out []string
	for f := range bm25ByFile {
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range literalFiles {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// lookupByConfidence dispatches a detected literal to the LiteralIndex
// tier its confidence calls for: high confidence (explicit backtick/quote)
// gets exact case-sensitive lookup, medium (implicit casing) gets
// case-insensitive lookup, and low falls back to prefix+substring so a
// partial or loosely-detected token still finds identifiers that contain
// it.
func lookupByConfidence(m *module, l store.DetectedLiteral) []store.ExtractedLiteral {
	switch l.Confidence {
	case store.ConfidenceHigh:
		return m.literal.LookupExact(l.Value)
	case store.ConfidenceMedium:
		return m.literal.LookupCaseInsensitive(l.Value)
	default:
		out := m.literal.LookupPrefix(l.Value)
		if sub, err := m.literal.LookupSubstring(l.Value, 0); err == nil {
			out = append(out, sub...)
		}
		return out
	}
}

func literalMatchFiles(m *module, literals []store.DetectedLiteral) []string {
	var files []string
	for _, l := range literals {
		for _, e := range lookupByConfidence(m, l) {
			files = append(files, e.FilePath)
		}
	}
	return files
}

// vocabMatchFiles surfaces files containing an identifier whose sub-word
// vocabulary bag contains one of the expanded query terms, so a query
// like "user" can find getUserById even when it never appears as a
// standalone identifier.
func vocabMatchFiles(m *module, terms []string) []string {
	var files []string
	for _, t := range terms {
		for _, e := range m.literal.LookupVocabulary(t) {
			files = append(files, e.FilePath)
		}
	}
	return files
}

func fileLiteralMatches(m *module, literals []store.DetectedLiteral, filePath string) []store.LiteralMatch {
	var out []store.LiteralMatch
	for _, l := range literals {
		for _, e := range lookupByConfidence(m, l) {
			if e.FilePath != filePath {
				continue
			}
			out = append(out, store.LiteralMatch{Query: l, Entry: e})
		}
	}
	return out
}

func literalsForChunk(fileMatches []store.LiteralMatch, c store.Chunk) []store.LiteralMatch {
	var out []store.LiteralMatch
	for _, lm := range fileMatches {
		if lm.Entry.ChunkID == c.ID {
			out = append(out, lm)
		}
	}
	return out
}

func vocabScore(expanded []ExpandedTerm, c store.Chunk) float64 {
	if len(expanded) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, t := range store.Tokenize(c.Content) {
		tokens[t] = true
	}
	for _, t := range store.Tokenize(c.Name) {
		tokens[t] = true
	}
	var got, total float64
	for _, t := range expanded {
		total += t.Weight
		if tokens[strings.ToLower(t.Term)] {
			got += t.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return got / total
}

func phraseMatch(freeTerms []string, content string) bool {
	if len(freeTerms) < 2 {
		return false
	}
	return strings.Contains(strings.ToLower(content), strings.Join(freeTerms, " "))
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
