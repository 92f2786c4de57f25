package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Document is one unit handed to BM25Index.AddDocument: an opaque ID plus
// the raw text to tokenize and score.
type Document struct {
	ID      string
	Content string
}

// BM25Result is one scored hit from BM25Index.Search.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats summarizes a BM25Index's current bookkeeping state.
type IndexStats struct {
	DocumentCount    int
	TermCount        int
	AverageDocLength float64
}

type bm25Doc struct {
	TermFreq map[string]int `json:"termFreq"`
	Length   int            `json:"length"`
}

// BM25Index is a from-scratch, incrementally-maintained classic Okapi
// BM25 index. Unlike a Bleve- or SQLite-FTS5-backed index, every piece of
// its running state (per-term document frequency, total corpus length,
// per-document term frequencies) is visible and mutated directly by
// Add/Remove/Update, which is what lets the incremental-vs-rebuild
// equivalence invariant hold exactly, not approximately.
type BM25Index struct {
	mu             sync.RWMutex
	config         BM25Config
	docs           map[string]*bm25Doc
	df             map[string]int // document frequency per term
	totalDocLength int
	docCount       int
}

// NewBM25Index creates an empty index with the given tuning constants.
func NewBM25Index(config BM25Config) *BM25Index {
	return &BM25Index{
		config: config,
		docs:   make(map[string]*bm25Doc),
		df:     make(map[string]int),
	}
}

// AddDocument tokenizes content and folds it into the running BM25
// statistics. It fails if docID already exists; callers that mean to
// replace an existing document's content must call UpdateDocument.
func (idx *BM25Index) AddDocument(docID, content string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.docs[docID]; ok {
		return fmt.Errorf("bm25: document %q already exists", docID)
	}
	idx.addLocked(docID, content)
	return nil
}

// RemoveDocument removes a document from the index. A no-op if docID is
// not present.
func (idx *BM25Index) RemoveDocument(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)
}

// UpdateDocument atomically replaces a document's content: the removal
// and re-add happen under a single lock so readers never observe a
// transient state with the document missing. Unlike AddDocument, it
// succeeds whether or not docID already exists.
func (idx *BM25Index) UpdateDocument(docID, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)
	idx.addLocked(docID, content)
}

func (idx *BM25Index) addLocked(docID, content string) {
	tokens := Tokenize(content)
	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}
	for term := range termFreq {
		idx.df[term]++
	}
	idx.docs[docID] = &bm25Doc{TermFreq: termFreq, Length: len(tokens)}
	idx.totalDocLength += len(tokens)
	idx.docCount++
}

func (idx *BM25Index) removeLocked(docID string) {
	doc, ok := idx.docs[docID]
	if !ok {
		return
	}
	for term := range doc.TermFreq {
		idx.df[term]--
		if idx.df[term] <= 0 {
			delete(idx.df, term)
		}
	}
	idx.totalDocLength -= doc.Length
	idx.docCount--
	delete(idx.docs, docID)
}

// Search scores every document containing at least one query token using
// classic Okapi BM25 and returns the top limit results, ordered by score
// descending then docID ascending for a deterministic tie-break.
func (idx *BM25Index) Search(queryTokens []string, limit int) []*BM25Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.docCount == 0 || len(queryTokens) == 0 {
		return []*BM25Result{}
	}

	avgDocLength := float64(idx.totalDocLength) / float64(idx.docCount)
	k1, b := idx.config.K1, idx.config.B

	seen := make(map[string]struct{}, len(queryTokens))
	terms := make([]string, 0, len(queryTokens))
	for _, t := range queryTokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		df := idx.df[term]
		idf[term] = math.Log(1 + (float64(idx.docCount)-float64(df)+0.5)/(float64(df)+0.5))
	}

	scores := make(map[string]float64)
	matched := make(map[string][]string)
	for docID, doc := range idx.docs {
		var score float64
		var hit []string
		for _, term := range terms {
			tf, ok := doc.TermFreq[term]
			if !ok {
				continue
			}
			num := float64(tf) * (k1 + 1)
			den := float64(tf) + k1*(1-b+b*float64(doc.Length)/avgDocLength)
			score += idf[term] * num / den
			hit = append(hit, term)
		}
		if score > 0 {
			scores[docID] = score
			matched[docID] = hit
		}
	}

	results := make([]*BM25Result, 0, len(scores))
	for docID, score := range scores {
		results = append(results, &BM25Result{DocID: docID, Score: score, MatchedTerms: matched[docID]})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// AllIDs returns every indexed document ID. Used for cross-index
// consistency checks between the BM25, literal and vector tiers.
func (idx *BM25Index) AllIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats reports the index's current bookkeeping state.
func (idx *BM25Index) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var avg float64
	if idx.docCount > 0 {
		avg = float64(idx.totalDocLength) / float64(idx.docCount)
	}
	return IndexStats{
		DocumentCount:    idx.docCount,
		TermCount:        len(idx.df),
		AverageDocLength: avg,
	}
}

// bm25Snapshot is the on-disk shape Serialize/Deserialize use. Persisting
// df/totalDocLength/docCount alongside the per-doc term frequencies means
// Deserialize need not retokenize anything: a reload is exact, which is
// what the rebuild-equivalence invariant checks against.
type bm25Snapshot struct {
	Config         BM25Config          `json:"config"`
	Docs           map[string]*bm25Doc `json:"docs"`
	DF             map[string]int      `json:"df"`
	TotalDocLength int                 `json:"totalDocLength"`
	DocCount       int                 `json:"docCount"`
}

// Serialize snapshots the index to JSON.
func (idx *BM25Index) Serialize() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	snap := bm25Snapshot{
		Config:         idx.config,
		Docs:           idx.docs,
		DF:             idx.df,
		TotalDocLength: idx.totalDocLength,
		DocCount:       idx.docCount,
	}
	return json.Marshal(snap)
}

// DeserializeBM25Index rebuilds an index from a Serialize snapshot.
func DeserializeBM25Index(data []byte) (*BM25Index, error) {
	var snap bm25Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Docs == nil {
		snap.Docs = make(map[string]*bm25Doc)
	}
	if snap.DF == nil {
		snap.DF = make(map[string]int)
	}
	return &BM25Index{
		config:         snap.Config,
		docs:           snap.Docs,
		df:             snap.DF,
		totalDocLength: snap.TotalDocLength,
		docCount:       snap.DocCount,
	}, nil
}
