package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// symbolicMeta is the on-disk `_meta.json` record: the module's BM25
// snapshot plus the ordered list of files it currently knows about.
type symbolicMeta struct {
	Files []string        `json:"files"`
	BM25  json.RawMessage `json:"bm25"`
}

// SymbolicIndex is the per-module Tier-1 index: one FileSummary per
// source file, searchable by keyword/export overlap via an embedded
// BM25Index built over each file's keyword+export+path vocabulary.
//
// On-disk layout:
//
//	<root>/_meta.json              -- symbolicMeta
//	<root>/<EscapeID(path)>.json   -- FileSummary
type SymbolicIndex struct {
	mu      sync.RWMutex
	root    string
	files   map[string]FileSummary
	keyword *BM25Index
}

// NewSymbolicIndex creates an empty index rooted at dir. dir need not
// exist yet; Save creates it.
func NewSymbolicIndex(dir string) *SymbolicIndex {
	return &SymbolicIndex{
		root:    dir,
		files:   make(map[string]FileSummary),
		keyword: NewBM25Index(DefaultBM25Config()),
	}
}

// summaryVocabulary builds the bag of words a FileSummary is scored
// against: its keywords, its exports (already a subset of keywords) and
// its path-context keywords, space joined so Tokenize can re-split it.
func summaryVocabulary(fs FileSummary) string {
	var sb strings.Builder
	for _, k := range fs.Keywords {
		sb.WriteString(k)
		sb.WriteByte(' ')
	}
	for _, k := range fs.PathContext.Keywords {
		sb.WriteString(k)
		sb.WriteByte(' ')
	}
	return sb.String()
}

// AddFileIncremental inserts or replaces a single file's FileSummary,
// re-deriving its BM25 vocabulary entry. Safe to call for an existing
// file: the prior entry is replaced, not duplicated.
func (si *SymbolicIndex) AddFileIncremental(fs FileSummary) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.files[fs.FilePath] = fs
	si.keyword.UpdateDocument(fs.FilePath, summaryVocabulary(fs))
}

// RemoveFile deletes a file's FileSummary and its BM25 entry.
func (si *SymbolicIndex) RemoveFile(filePath string) {
	si.mu.Lock()
	defer si.mu.Unlock()
	delete(si.files, filePath)
	si.keyword.RemoveDocument(filePath)
}

// GetFileSummary returns the summary for one file, if indexed.
func (si *SymbolicIndex) GetFileSummary(filePath string) (FileSummary, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	fs, ok := si.files[filePath]
	return fs, ok
}

// GetAllFiles returns every indexed FileSummary, ordered by file path for
// determinism.
func (si *SymbolicIndex) GetAllFiles() []FileSummary {
	si.mu.RLock()
	defer si.mu.RUnlock()
	out := make([]FileSummary, 0, len(si.files))
	for _, fs := range si.files {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

// FindCandidates returns up to limit files whose keyword/export/path
// vocabulary best matches queryTerms, BM25-ranked.
func (si *SymbolicIndex) FindCandidates(queryTerms []string, limit int) []FileSummary {
	si.mu.RLock()
	results := si.keyword.Search(queryTerms, limit)
	out := make([]FileSummary, 0, len(results))
	for _, r := range results {
		if fs, ok := si.files[r.DocID]; ok {
			out = append(out, fs)
		}
	}
	si.mu.RUnlock()
	return out
}

// ScoredFileSummary pairs a FileSummary with its raw BM25 score against
// the query terms that produced it.
type ScoredFileSummary struct {
	Summary FileSummary
	Score   float64
}

// FindCandidatesScored is FindCandidates but keeps each file's raw BM25
// score, for callers (the SearchEngine) that fold it into a further
// fusion formula instead of treating candidacy as boolean.
func (si *SymbolicIndex) FindCandidatesScored(queryTerms []string, limit int) []ScoredFileSummary {
	si.mu.RLock()
	results := si.keyword.Search(queryTerms, limit)
	out := make([]ScoredFileSummary, 0, len(results))
	for _, r := range results {
		if fs, ok := si.files[r.DocID]; ok {
			out = append(out, ScoredFileSummary{Summary: fs, Score: r.Score})
		}
	}
	si.mu.RUnlock()
	return out
}

// Count returns the number of indexed files.
func (si *SymbolicIndex) Count() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.files)
}

// pathMirror maps a source file path to its on-disk JSON mirror path,
// escaping separators the same way ChunkID does so the mirror tree never
// needs intermediate directories to match the source tree 1:1.
func pathMirror(root, filePath string) string {
	return filepath.Join(root, EscapeID(filePath)+".json")
}

// SaveIncremental persists one file's FileSummary to its mirror path and
// rewrites `_meta.json`'s file list and BM25 snapshot. This is the
// per-file write IndexEngine issues after each successfully indexed
// file: writes are staged per file, not batched for the whole run.
func (si *SymbolicIndex) SaveIncremental(filePath string) error {
	si.mu.RLock()
	fs, ok := si.files[filePath]
	si.mu.RUnlock()
	if !ok {
		return fmt.Errorf("symbolic index: no summary for %q", filePath)
	}

	mirrorPath := pathMirror(si.root, filePath)
	if err := os.MkdirAll(filepath.Dir(mirrorPath), 0o755); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal file summary: %w", err)
	}
	if err := writeFileAtomic(mirrorPath, data); err != nil {
		return fmt.Errorf("write file summary: %w", err)
	}

	return si.saveMeta()
}

// SaveMeta persists `_meta.json` alone, without touching any file
// mirror. Callers use this after removing files (no mirror to write)
// where SaveIncremental's single-file contract doesn't fit.
func (si *SymbolicIndex) SaveMeta() error {
	return si.saveMeta()
}

func (si *SymbolicIndex) saveMeta() error {
	si.mu.RLock()
	files := make([]string, 0, len(si.files))
	for f := range si.files {
		files = append(files, f)
	}
	sort.Strings(files)
	bm25Data, err := si.keyword.Serialize()
	si.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("serialize keyword index: %w", err)
	}

	meta := symbolicMeta{Files: files, BM25: bm25Data}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.MkdirAll(si.root, 0o755); err != nil {
		return fmt.Errorf("create index root: %w", err)
	}
	return writeFileAtomic(filepath.Join(si.root, "_meta.json"), data)
}

// LoadSymbolicIndex reads `_meta.json` and every FileSummary back from
// disk. Missing root (fresh module) is not an error: the index is empty.
func LoadSymbolicIndex(dir string) (*SymbolicIndex, error) {
	si := NewSymbolicIndex(dir)

	metaPath := filepath.Join(dir, "_meta.json")
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return si, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	var meta symbolicMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}

	if len(meta.BM25) > 0 {
		idx, err := DeserializeBM25Index(meta.BM25)
		if err != nil {
			return nil, fmt.Errorf("deserialize keyword index: %w", err)
		}
		si.keyword = idx
	}

	for _, filePath := range meta.Files {
		mirrorPath := pathMirror(dir, filePath)
		fsData, err := os.ReadFile(mirrorPath)
		if err != nil {
			return nil, fmt.Errorf("read file summary %q: %w", filePath, err)
		}
		var fs FileSummary
		if err := json.Unmarshal(fsData, &fs); err != nil {
			return nil, fmt.Errorf("parse file summary %q: %w", filePath, err)
		}
		si.files[fs.FilePath] = fs
	}

	return si, nil
}

// writeFileAtomic writes data via a temp file + rename so a crash mid-write
// never leaves a partially-written FileSummary or meta file on disk.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
