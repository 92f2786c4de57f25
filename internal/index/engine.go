// Package index implements the indexing pipeline: scan a project root,
// parse each file into chunks, embed and score them, and persist the
// per-module on-disk layout. It depends only on internal/capability for
// embedding and parsing, never on a concrete provider.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/chunk"
	"github.com/conradkoh/raggrep/internal/pathctx"
	"github.com/conradkoh/raggrep/internal/scanner"
	"github.com/conradkoh/raggrep/internal/store"
)

// prepareConcurrency bounds how many files are parsed and embedded at
// once during IndexAll. Disk writes are still applied one file at a
// time, so this only overlaps the network-bound embedding calls and
// CPU-bound parsing across files.
const prepareConcurrency = 4

// embedBatchSize caps how many texts are sent to an EmbeddingProvider
// per call.
const embedBatchSize = 32

// manifest is the module-level record of what's been indexed and when,
// used to stat-gate unchanged files between runs.
type manifest struct {
	ModuleID     string            `json:"moduleId"`
	Root         string            `json:"root"`
	LastModified map[string]string `json:"lastModified"`
}

// Config configures one IndexEngine instance.
type Config struct {
	Root     string // project root being indexed
	Embedder capability.EmbeddingProvider
	Parsers  []capability.Parser // tried in order; a regex fallback is always appended
	Progress capability.ProgressSink
	Logger   capability.Logger

	// Extensions restricts IndexAll to files with one of these extensions
	// (including the leading dot), e.g. ".go". Empty means "scan
	// everything the scanner would otherwise accept". Callers typically
	// pass config.Config.Extensions.
	Extensions []string

	// IgnorePatterns are additional glob patterns excluded from IndexAll,
	// e.g. "**/node_modules/**". Callers typically pass
	// config.Config.IgnorePaths.
	IgnorePatterns []string
}

// Engine is the per-module indexing pipeline: one Engine owns exactly
// one module's on-disk state and must not be shared across concurrent
// indexing runs on the same root.
type Engine struct {
	cfg       Config
	moduleID  string
	moduleDir string

	mu       sync.RWMutex // guards manifest.LastModified during concurrent prepareFile calls
	manifest manifest
	symbolic *store.SymbolicIndex
	literal  *store.LiteralIndex
	vector   store.VectorStore

	parsers []capability.Parser
}

// Open loads (or initializes) the module rooted at cfg.Root's on-disk
// index state under <root>/.raggrep/index/<moduleId>/.
func Open(cfg Config) (*Engine, error) {
	if cfg.Progress == nil {
		cfg.Progress = capability.NoopProgressSink{}
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	moduleID := store.EscapeID(absRoot)
	moduleDir := filepath.Join(absRoot, ".raggrep", "index", moduleID)

	e := &Engine{
		cfg:       cfg,
		moduleID:  moduleID,
		moduleDir: moduleDir,
		parsers:   append(append([]capability.Parser{}, cfg.Parsers...), chunk.RegexFallbackChunker{}),
	}

	if err := e.loadManifest(); err != nil {
		return nil, err
	}

	e.symbolic, err = store.LoadSymbolicIndex(filepath.Join(moduleDir, "symbolic"))
	if err != nil {
		return nil, fmt.Errorf("load symbolic index: %w", err)
	}

	literalData, err := os.ReadFile(filepath.Join(moduleDir, "literal", "postings.json"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read literal postings: %w", err)
	}
	e.literal, err = store.DeserializeLiteralIndex(literalData)
	if err != nil {
		return nil, fmt.Errorf("load literal index: %w", err)
	}

	dims := cfg.Embedder.Dimension()
	vecPath := filepath.Join(moduleDir, "vectors.hnsw")
	onDiskDims, err := store.ReadHNSWStoreDimensions(vecPath)
	if err != nil {
		return nil, fmt.Errorf("read vector store metadata: %w", err)
	}
	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: dims, Model: cfg.Embedder.ModelName()})
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if onDiskDims != 0 {
		if onDiskDims != dims {
			// Embedding dimension changed: downgrade silently, warn once,
			// rather than fail the whole indexing run.
			e.log().Warn("embedding dimension changed, rebuilding vector store", "old", onDiskDims, "new", dims)
		} else if err := vs.Load(vecPath); err != nil {
			return nil, fmt.Errorf("load vector store: %w", err)
		}
	}
	e.vector = vs

	return e, nil
}

func (e *Engine) log() capability.Logger {
	if e.cfg.Logger != nil {
		return e.cfg.Logger
	}
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func (e *Engine) manifestPath() string { return filepath.Join(e.moduleDir, "manifest.json") }

func (e *Engine) loadManifest() error {
	data, err := os.ReadFile(e.manifestPath())
	if os.IsNotExist(err) {
		e.manifest = manifest{ModuleID: e.moduleID, Root: e.cfg.Root, LastModified: map[string]string{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &e.manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if e.manifest.LastModified == nil {
		e.manifest.LastModified = map[string]string{}
	}
	return nil
}

func (e *Engine) saveManifest() error {
	if err := os.MkdirAll(e.moduleDir, 0o755); err != nil {
		return fmt.Errorf("create module dir: %w", err)
	}
	data, err := json.MarshalIndent(e.manifest, "", "  ")
	if err != nil {
		return err
	}
	tmp := e.manifestPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, e.manifestPath())
}

func (e *Engine) fileDataPath(filePath string) string {
	return filepath.Join(e.moduleDir, store.EscapeID(filePath)+".data.json")
}

// IndexAll scans the root (respecting .gitignore) and indexes every file
// that passed the stat gate, then finalizes. Parsing and embedding run
// across up to prepareConcurrency files at once;
// the resulting staged writes are committed to disk one file at a time.
func (e *Engine) IndexAll(ctx context.Context) error {
	runID := uuid.New().String()
	e.log().Info("index run started", "runId", runID, "root", e.cfg.Root)

	sc, err := scanner.New()
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}
	var include []string
	for _, ext := range e.cfg.Extensions {
		include = append(include, "*"+ext)
	}
	results, err := sc.Scan(ctx, &scanner.ScanOptions{
		RootDir:          e.cfg.Root,
		RespectGitignore: true,
		IncludePatterns:  include,
		ExcludePatterns:  e.cfg.IgnorePatterns,
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	var files []string
	for r := range results {
		if r.Error != nil || r.File == nil {
			continue
		}
		files = append(files, r.File.Path)
	}

	e.cfg.Progress.Begin("indexing", len(files))
	defer e.cfg.Progress.Done()

	preps := make([]*preparedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			p, err := e.prepareFile(gctx, f)
			if err != nil {
				e.log().Warn("prepare file failed", "file", f, "error", err)
				return nil // per-file failures don't abort the run
			}
			preps[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(files))
	for i, f := range files {
		seen[f] = true
		if preps[i] == nil {
			continue
		}
		if err := e.commitFile(preps[i]); err != nil {
			e.log().Warn("commit file failed", "file", f, "error", err)
		}
		e.cfg.Progress.Tick(i + 1)
	}

	e.log().Info("index run finished", "runId", runID, "files", len(files))
	return e.Finalize(seen)
}

// preparedFile holds everything prepareFile computed for one file, ready
// to be committed to disk by commitFile. It touches no shared state, so
// many can be built concurrently.
type preparedFile struct {
	relPath    string
	lastMod    string
	chunks     []store.Chunk
	embeddings []store.EmbeddingVector
	literals   []store.ExtractedLiteral
	summary    store.FileSummary
}

// prepareFile runs the read-only, parallelizable half of the per-file
// pipeline: stat-gate, parse, path context, embed. It returns nil, nil
// when the file is unchanged since the last run.
func (e *Engine) prepareFile(ctx context.Context, relPath string) (*preparedFile, error) {
	absPath := filepath.Join(e.cfg.Root, relPath)
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", relPath, err)
	}
	lastMod := info.ModTime().UTC().Format(time.RFC3339Nano)
	if prev, ok := e.manifestEntry(relPath); ok && prev == lastMod {
		return nil, nil // unchanged since last run
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", relPath, err)
	}

	parsed := e.parseFile(ctx, content, relPath)
	chunks := chunk.ToStoreChunks(relPath, string(content), parsed)
	pathCtx := pathctx.Parse(relPath)

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = chunk.BuildEmbeddingInput(pathCtx, c)
	}
	embeddings, err := e.embedBatched(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", relPath, err)
	}

	return &preparedFile{
		relPath:    relPath,
		lastMod:    lastMod,
		chunks:     chunks,
		embeddings: embeddings,
		literals:   extractLiterals(relPath, chunks),
		summary: store.FileSummary{
			FilePath:     relPath,
			LastModified: lastMod,
			ChunkCount:   len(chunks),
			ChunkTypes:   chunkTypesOf(chunks),
			Exports:      exportsOf(chunks),
			Keywords:     keywordsOf(chunks),
			PathContext:  pathCtx,
		},
	}, nil
}

// manifestEntry reads the manifest under e.mu so prepareFile can run
// concurrently with other prepareFile calls.
func (e *Engine) manifestEntry(relPath string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.manifest.LastModified[relPath]
	return v, ok
}

// commitFile applies one prepareFile result's staged writes: literal and
// vector postings are replaced wholesale, then the symbolic summary,
// then the raw chunk/embedding record, in an order chosen so a crash
// mid-file never leaves the symbolic tier pointing at vectors that
// don't exist yet. Callers must not call commitFile concurrently.
func (e *Engine) commitFile(p *preparedFile) error {
	relPath := p.relPath
	if err := e.literal.RemoveFile(relPath); err != nil {
		return fmt.Errorf("remove stale literals for %q: %w", relPath, err)
	}
	if err := e.literal.AddLiterals(relPath, p.literals); err != nil {
		return fmt.Errorf("add literals for %q: %w", relPath, err)
	}

	oldIDs := e.staleChunkIDs(relPath)
	if len(oldIDs) > 0 {
		if err := e.vector.Delete(context.Background(), oldIDs); err != nil {
			return fmt.Errorf("delete stale vectors for %q: %w", relPath, err)
		}
	}
	ids := make([]string, len(p.chunks))
	for i, c := range p.chunks {
		ids[i] = c.ID
	}
	if len(ids) > 0 {
		if err := e.vector.Add(context.Background(), ids, p.embeddings); err != nil {
			return fmt.Errorf("add vectors for %q: %w", relPath, err)
		}
	}

	e.symbolic.AddFileIncremental(p.summary)
	if err := e.symbolic.SaveIncremental(relPath); err != nil {
		return fmt.Errorf("save symbolic summary for %q: %w", relPath, err)
	}

	data := store.ModuleFileData{
		FilePath:       relPath,
		LastModified:   p.lastMod,
		Chunks:         p.chunks,
		Embeddings:     p.embeddings,
		EmbeddingModel: e.cfg.Embedder.ModelName(),
	}
	if err := e.saveFileData(relPath, data); err != nil {
		return fmt.Errorf("save chunk data for %q: %w", relPath, err)
	}

	e.mu.Lock()
	e.manifest.LastModified[relPath] = p.lastMod
	e.mu.Unlock()
	return e.saveManifest()
}

// IndexFile runs the full per-file pipeline sequentially: prepare then
// commit. Used by the incremental watcher path, where only one file
// changes at a time.
func (e *Engine) IndexFile(ctx context.Context, relPath string) error {
	p, err := e.prepareFile(ctx, relPath)
	if err != nil {
		return err
	}
	if p == nil {
		return nil // unchanged
	}
	return e.commitFile(p)
}

// staleChunkIDs returns the chunk IDs currently on disk for relPath,
// before this reindex replaces them (so Finalize can clean up vectors
// whose line ranges shifted).
func (e *Engine) staleChunkIDs(relPath string) []string {
	data, err := e.loadFileData(relPath)
	if err != nil {
		return nil
	}
	ids := make([]string, len(data.Chunks))
	for i, c := range data.Chunks {
		ids[i] = c.ID
	}
	return ids
}

func (e *Engine) loadFileData(relPath string) (store.ModuleFileData, error) {
	var data store.ModuleFileData
	raw, err := os.ReadFile(e.fileDataPath(relPath))
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(raw, &data)
	return data, err
}

func (e *Engine) saveFileData(relPath string, data store.ModuleFileData) error {
	path := e.fileDataPath(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AllFiles returns every file currently indexed, for callers (the watcher
// incremental path) that need to build a "seen" set for Finalize without
// a full rescan.
func (e *Engine) AllFiles() []store.FileSummary {
	return e.symbolic.GetAllFiles()
}

// LoadFileData exposes a module file's persisted chunks/embeddings for
// the SearchEngine to read: it reads the persisted per-file chunk record
// and never re-parses source.
func (e *Engine) LoadFileData(relPath string) (store.ModuleFileData, error) {
	return e.loadFileData(relPath)
}

// Finalize removes postings/vectors/summaries for files no longer seen
// on disk and persists the vector store.
func (e *Engine) Finalize(seen map[string]bool) error {
	for _, fs := range e.symbolic.GetAllFiles() {
		if seen[fs.FilePath] {
			continue
		}
		ids := e.staleChunkIDs(fs.FilePath)
		if len(ids) > 0 {
			_ = e.vector.Delete(context.Background(), ids)
		}
		_ = e.literal.RemoveFile(fs.FilePath)
		e.symbolic.RemoveFile(fs.FilePath)
		_ = os.Remove(e.fileDataPath(fs.FilePath))
		delete(e.manifest.LastModified, fs.FilePath)
	}

	if err := e.symbolic.SaveMeta(); err != nil {
		return fmt.Errorf("save symbolic meta: %w", err)
	}

	postings, err := e.literal.Serialize()
	if err != nil {
		return fmt.Errorf("serialize literal postings: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(e.moduleDir, "literal"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(e.moduleDir, "literal", "postings.json"), postings, 0o644); err != nil {
		return fmt.Errorf("write literal postings: %w", err)
	}

	if err := e.vector.Save(filepath.Join(e.moduleDir, "vectors.hnsw")); err != nil {
		return fmt.Errorf("save vector store: %w", err)
	}

	return e.saveManifest()
}

// Close releases resources held by the module's indices.
func (e *Engine) Close() error {
	return e.vector.Close()
}

func (e *Engine) parseFile(ctx context.Context, content []byte, relPath string) []capability.ParsedChunk {
	for _, p := range e.parsers {
		if !p.CanParse(relPath) {
			continue
		}
		res, err := p.Parse(ctx, content, relPath)
		if err != nil || !res.Success {
			continue
		}
		return res.Chunks
	}
	return nil
}

func (e *Engine) embedBatched(ctx context.Context, texts []string) ([]store.EmbeddingVector, error) {
	out := make([]store.EmbeddingVector, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.cfg.Embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vecs {
			out = append(out, v)
		}
	}
	return out, nil
}

func chunkTypesOf(chunks []store.Chunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		t := string(c.Type)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func exportsOf(chunks []store.Chunk) []string {
	var out []string
	for _, c := range chunks {
		if c.IsExported && c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}

func keywordsOf(chunks []store.Chunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		for _, tok := range store.Tokenize(c.Name + " " + c.DocComment) {
			if store.IsCommonKeyword(tok) || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// extractLiterals derives ExtractedLiteral entries from each chunk's
// name: the definition occurrence plus its casing-split vocabulary.
func extractLiterals(relPath string, chunks []store.Chunk) []store.ExtractedLiteral {
	var out []store.ExtractedLiteral
	for _, c := range chunks {
		if c.Name == "" {
			continue
		}
		out = append(out, store.ExtractedLiteral{
			Value:      c.Name,
			Type:       literalTypeOf(c.Type),
			MatchType:  store.MatchDefinition,
			ChunkID:    c.ID,
			FilePath:   relPath,
			Vocabulary: store.SplitIdentifier(c.Name),
		})
	}
	return out
}

func literalTypeOf(ct store.ChunkType) store.LiteralType {
	switch ct {
	case store.ChunkFunction:
		return store.LiteralFunctionName
	case store.ChunkClass, store.ChunkInterface, store.ChunkTypeDecl, store.ChunkEnum:
		return store.LiteralClassName
	case store.ChunkVariable:
		return store.LiteralVariableName
	default:
		return store.LiteralIdentifier
	}
}
