package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// literalTokenizerName names the raw-identifier tokenizer registered
	// below: unlike the BM25 tier, the literal tier must keep whole
	// identifiers intact (no casing split) so substring/prefix queries
	// can match inside "getUserById" without needing to match "get".
	literalTokenizerName = "raggrep_literal_tokenizer"
	literalAnalyzerName  = "raggrep_literal_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(literalTokenizerName, literalTokenizerConstructor)
}

// literalEntry is one occurrence recorded against an identifier value in
// the exact-match tier.
type literalEntry struct {
	Entry ExtractedLiteral
}

// LiteralIndex is the identifier/substring index. It keeps two tiers
// side by side: plain Go maps for O(1) exact and case-insensitive
// lookup, and a Bleve index, with a custom analyzer registered below,
// for the substring/fuzzy tier a hand-rolled map can't serve cheaply.
// Prefix lookup scans the case-folded map.
type LiteralIndex struct {
	mu sync.RWMutex

	exact       map[string][]literalEntry // value -> entries
	caseFolded  map[string][]literalEntry // lower(value) -> entries
	byFile      map[string][]string       // filepath -> values indexed from it (for removeFile)
	substrIndex bleve.Index
}

type literalDoc struct {
	Value string `json:"value"`
}

// NewLiteralIndex builds an empty in-memory literal index.
func NewLiteralIndex() (*LiteralIndex, error) {
	m, err := literalIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create literal index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create literal substring index: %w", err)
	}
	return &LiteralIndex{
		exact:       make(map[string][]literalEntry),
		caseFolded:  make(map[string][]literalEntry),
		byFile:      make(map[string][]string),
		substrIndex: idx,
	}, nil
}

func literalIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(literalAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     literalTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	m.DefaultAnalyzer = literalAnalyzerName
	return m, nil
}

// AddLiterals indexes every extracted literal belonging to one file. It
// does not remove the file's prior entries first — callers must call
// RemoveFile before re-adding on a file update.
func (li *LiteralIndex) AddLiterals(filePath string, entries []ExtractedLiteral) error {
	li.mu.Lock()
	defer li.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	batch := li.substrIndex.NewBatch()
	docID := 0
	for _, e := range entries {
		le := literalEntry{Entry: e}
		li.exact[e.Value] = append(li.exact[e.Value], le)
		lower := strings.ToLower(e.Value)
		li.caseFolded[lower] = append(li.caseFolded[lower], le)
		li.byFile[filePath] = append(li.byFile[filePath], e.Value)

		id := fmt.Sprintf("%s#%d", e.ChunkID, docID)
		docID++
		if err := batch.Index(id, literalDoc{Value: e.Value}); err != nil {
			return fmt.Errorf("batch index literal %q: %w", e.Value, err)
		}
	}
	return li.substrIndex.Batch(batch)
}

// RemoveFile drops every literal previously indexed from filePath.
func (li *LiteralIndex) RemoveFile(filePath string) error {
	li.mu.Lock()
	defer li.mu.Unlock()

	values, ok := li.byFile[filePath]
	if !ok {
		return nil
	}
	delete(li.byFile, filePath)

	valueSet := make(map[string]struct{}, len(values))
	for _, v := range values {
		valueSet[v] = struct{}{}
	}

	for v := range valueSet {
		li.exact[v] = pruneByFile(li.exact[v], filePath)
		if len(li.exact[v]) == 0 {
			delete(li.exact, v)
		}
		lower := strings.ToLower(v)
		li.caseFolded[lower] = pruneByFile(li.caseFolded[lower], filePath)
		if len(li.caseFolded[lower]) == 0 {
			delete(li.caseFolded, lower)
		}
	}

	return nil
}

func pruneByFile(entries []literalEntry, filePath string) []literalEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Entry.FilePath != filePath {
			out = append(out, e)
		}
	}
	return out
}

// LookupExact returns every entry whose literal value matches exactly.
func (li *LiteralIndex) LookupExact(value string) []ExtractedLiteral {
	li.mu.RLock()
	defer li.mu.RUnlock()
	return entriesOf(li.exact[value])
}

// LookupCaseInsensitive returns every entry matching value ignoring case.
func (li *LiteralIndex) LookupCaseInsensitive(value string) []ExtractedLiteral {
	li.mu.RLock()
	defer li.mu.RUnlock()
	return entriesOf(li.caseFolded[strings.ToLower(value)])
}

// LookupPrefix returns entries whose value starts with prefix
// (case-insensitive), scanning the case-folded map directly: exact
// prefix matching needs no fuzzy ranking, so this tier skips Bleve.
func (li *LiteralIndex) LookupPrefix(prefix string) []ExtractedLiteral {
	li.mu.RLock()
	defer li.mu.RUnlock()
	lowerPrefix := strings.ToLower(prefix)
	var out []ExtractedLiteral
	for value, entries := range li.caseFolded {
		if strings.HasPrefix(value, lowerPrefix) {
			out = append(out, entriesOf(entries)...)
		}
	}
	return out
}

// LookupSubstring finds identifiers containing value anywhere (ignoring
// case), plus identifiers within edit distance 1 of value, backed by the
// Bleve tier: a wildcard query OR'd with a fuzzy match query.
func (li *LiteralIndex) LookupSubstring(value string, limit int) ([]ExtractedLiteral, error) {
	li.mu.RLock()
	defer li.mu.RUnlock()

	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	sub := bleve.NewWildcardQuery("*" + strings.ToLower(value) + "*")
	sub.SetField("value")
	fuzzy := bleve.NewMatchQuery(value)
	fuzzy.SetField("value")
	fuzzy.Fuzziness = 1
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(sub, fuzzy))
	req.Size = limit
	if req.Size <= 0 {
		req.Size = 50
	}

	result, err := li.substrIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("literal substring search: %w", err)
	}

	var out []ExtractedLiteral
	seen := make(map[string]struct{})
	for _, hit := range result.Hits {
		chunkID := strings.SplitN(hit.ID, "#", 2)[0]
		if _, dup := seen[chunkID]; dup {
			continue
		}
		seen[chunkID] = struct{}{}
		for _, e := range li.exact {
			for _, entry := range e {
				if entry.Entry.ChunkID == chunkID {
					out = append(out, entry.Entry)
				}
			}
		}
	}
	return out, nil
}

// LookupVocabulary returns entries whose sub-token vocabulary contains
// term, supporting vocab-bag queries like "user" matching "getUserById".
func (li *LiteralIndex) LookupVocabulary(term string) []ExtractedLiteral {
	li.mu.RLock()
	defer li.mu.RUnlock()
	lowerTerm := strings.ToLower(term)
	var out []ExtractedLiteral
	for _, entries := range li.exact {
		for _, e := range entries {
			for _, vocab := range e.Entry.Vocabulary {
				if strings.ToLower(vocab) == lowerTerm {
					out = append(out, e.Entry)
					break
				}
			}
		}
	}
	return out
}

// AllEntries groups every indexed literal by the file it was extracted
// from, for persistence as the single file <module>/literal/postings.json.
func (li *LiteralIndex) AllEntries() map[string][]ExtractedLiteral {
	li.mu.RLock()
	defer li.mu.RUnlock()
	out := make(map[string][]ExtractedLiteral)
	for _, entries := range li.exact {
		for _, le := range entries {
			out[le.Entry.FilePath] = append(out[le.Entry.FilePath], le.Entry)
		}
	}
	return out
}

// Serialize snapshots the literal index as JSON postings keyed by file.
func (li *LiteralIndex) Serialize() ([]byte, error) {
	return json.Marshal(li.AllEntries())
}

// DeserializeLiteralIndex rebuilds a LiteralIndex from a Serialize snapshot.
func DeserializeLiteralIndex(data []byte) (*LiteralIndex, error) {
	idx, err := NewLiteralIndex()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return idx, nil
	}
	var byFile map[string][]ExtractedLiteral
	if err := json.Unmarshal(data, &byFile); err != nil {
		return nil, fmt.Errorf("decode literal index: %w", err)
	}
	for file, entries := range byFile {
		if err := idx.AddLiterals(file, entries); err != nil {
			return nil, fmt.Errorf("rebuild literal postings for %q: %w", file, err)
		}
	}
	return idx, nil
}

func entriesOf(entries []literalEntry) []ExtractedLiteral {
	out := make([]ExtractedLiteral, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Entry)
	}
	return out
}

// literalTokenizerConstructor registers a tokenizer that keeps whole
// identifiers as single tokens (no casing split), so the substring tier
// searches against raw values rather than tokenized fragments.
func literalTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &wholeValueTokenizer{}, nil
}

type wholeValueTokenizer struct{}

func (t *wholeValueTokenizer) Tokenize(input []byte) analysis.TokenStream {
	if len(input) == 0 {
		return analysis.TokenStream{}
	}
	return analysis.TokenStream{{
		Term:     input,
		Start:    0,
		End:      len(input),
		Position: 1,
		Type:     analysis.AlphaNumeric,
	}}
}
