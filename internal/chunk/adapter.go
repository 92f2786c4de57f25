package chunk

import (
	"bufio"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/store"
)

// TreeSitterParser adapts the tree-sitter-backed CodeChunker to the
// capability.Parser boundary: the indexing pipeline only ever talks to
// capability.Parser, never to a concrete AST library.
type TreeSitterParser struct {
	chunker *CodeChunker
	exts    map[string]struct{}
}

// NewTreeSitterParser wraps a CodeChunker for use as a capability.Parser.
func NewTreeSitterParser(cc *CodeChunker) *TreeSitterParser {
	exts := make(map[string]struct{})
	for _, e := range cc.SupportedExtensions() {
		exts[strings.TrimPrefix(e, ".")] = struct{}{}
	}
	return &TreeSitterParser{chunker: cc, exts: exts}
}

func (p *TreeSitterParser) CanParse(filePath string) bool {
	_, ok := p.exts[extOf(filePath)]
	return ok
}

func (p *TreeSitterParser) Parse(ctx context.Context, content []byte, filePath string) (capability.ParseResult, error) {
	lang := languageOf(filePath)
	chunks, err := p.chunker.Chunk(ctx, &FileInput{Path: filePath, Content: content, Language: lang})
	if err != nil {
		return capability.ParseResult{Language: lang, Success: false, Error: err}, nil
	}

	out := make([]capability.ParsedChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Symbols) == 0 {
			continue
		}
		sym := c.Symbols[0]
		out = append(out, capability.ParsedChunk{
			Type:       string(symbolToChunkType(sym.Type)),
			Name:       sym.Name,
			StartLine:  sym.StartLine,
			EndLine:    sym.EndLine,
			IsExported: isExportedName(sym.Name),
			DocComment: sym.DocComment,
			Content:    c.RawContent,
		})
	}
	return capability.ParseResult{Chunks: out, Language: lang, Success: true}, nil
}

// MarkdownParser adapts the header-based MarkdownChunker to the
// capability.Parser boundary, so prose documentation is chunked by
// section rather than falling back to the generic regex chunker.
type MarkdownParser struct {
	chunker *MarkdownChunker
	exts    map[string]struct{}
}

// NewMarkdownParser wraps a MarkdownChunker for use as a capability.Parser.
func NewMarkdownParser(mc *MarkdownChunker) *MarkdownParser {
	exts := make(map[string]struct{})
	for _, e := range mc.SupportedExtensions() {
		exts[strings.TrimPrefix(e, ".")] = struct{}{}
	}
	return &MarkdownParser{chunker: mc, exts: exts}
}

func (p *MarkdownParser) CanParse(filePath string) bool {
	_, ok := p.exts[extOf(filePath)]
	return ok
}

func (p *MarkdownParser) Parse(ctx context.Context, content []byte, filePath string) (capability.ParseResult, error) {
	chunks, err := p.chunker.Chunk(ctx, &FileInput{Path: filePath, Content: content, Language: "markdown"})
	if err != nil {
		return capability.ParseResult{Language: "markdown", Success: false, Error: err}, nil
	}

	out := make([]capability.ParsedChunk, 0, len(chunks))
	for _, c := range chunks {
		name := c.Metadata["section_title"]
		out = append(out, capability.ParsedChunk{
			Type:      "block",
			Name:      name,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.RawContent,
		})
	}
	return capability.ParseResult{Chunks: out, Language: "markdown", Success: true}, nil
}

func symbolToChunkType(t SymbolType) store.ChunkType {
	switch t {
	case SymbolTypeFunction, SymbolTypeMethod:
		return store.ChunkFunction
	case SymbolTypeClass:
		return store.ChunkClass
	case SymbolTypeInterface:
		return store.ChunkInterface
	case SymbolTypeType:
		return store.ChunkTypeDecl
	case SymbolTypeConstant, SymbolTypeVariable:
		return store.ChunkVariable
	default:
		return store.ChunkBlock
	}
}

// isExportedName uses the Go convention (leading uppercase rune) as a
// language-agnostic best effort; languages without the concept simply
// never set the export boost.
func isExportedName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

func extOf(filePath string) string {
	i := strings.LastIndexByte(filePath, '.')
	if i < 0 {
		return ""
	}
	return filePath[i+1:]
}

var extToLanguage = map[string]string{
	"go": "go", "ts": "typescript", "tsx": "typescript", "js": "javascript",
	"jsx": "javascript", "py": "python", "rs": "rust", "java": "java",
	"rb": "ruby", "c": "c", "h": "c", "cpp": "cpp", "cc": "cpp", "hpp": "cpp",
}

func languageOf(filePath string) string {
	if lang, ok := extToLanguage[extOf(filePath)]; ok {
		return lang
	}
	return "text"
}

// Regex fallback extraction: when no capability.Parser claims a file, or
// Parse reports Success=false, a simple signature-line regex plus brace
// counting stands in for a real AST.
var fallbackSignaturePattern = regexp.MustCompile(
	`^\s*(?:(?:export|public|private|protected|static|async|pub)\s+)*` +
		`(?:func|function|def|class|struct|interface|type|enum)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`,
)

// RegexFallbackChunker implements capability.Parser with a brace-depth
// scanner: it finds lines matching a function/class/type/enum signature,
// then walks forward counting `{`/`}` until the block closes.
type RegexFallbackChunker struct{}

func (RegexFallbackChunker) CanParse(filePath string) bool { return true }

func (RegexFallbackChunker) Parse(ctx context.Context, content []byte, filePath string) (capability.ParseResult, error) {
	lines := splitLinesKeep(string(content))
	var out []capability.ParsedChunk

	depth := 0
	var open int
	var openName string
	var openType string
	inBlock := false

	for i, line := range lines {
		lineNo := i + 1
		if !inBlock {
			if m := fallbackSignaturePattern.FindStringSubmatch(line); m != nil {
				inBlock = true
				open = lineNo
				openName = m[1]
				openType = fallbackTypeOf(line)
				depth = 0
			}
		}
		if inBlock {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 && strings.ContainsAny(line, "{}") {
				out = append(out, capability.ParsedChunk{
					Type:       openType,
					Name:       openName,
					StartLine:  open,
					EndLine:    lineNo,
					IsExported: isExportedName(openName),
					Content:    strings.Join(lines[open-1:lineNo], "\n"),
				})
				inBlock = false
			}
		}
	}

	return capability.ParseResult{Language: languageOf(filePath), Success: true, Chunks: out}, nil
}

func fallbackTypeOf(line string) string {
	switch {
	case strings.Contains(line, "class "), strings.Contains(line, "struct "):
		return "class"
	case strings.Contains(line, "interface "):
		return "interface"
	case strings.Contains(line, "enum "):
		return "enum"
	case strings.Contains(line, "type "):
		return "type"
	default:
		return "function"
	}
}

func splitLinesKeep(s string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// ToStoreChunks converts a parser's output into domain Chunks, slicing
// Content from the authoritative file text by line range — Content
// always equals the source slice spanned by [StartLine, EndLine] rather
// than trusting the parser's own copy. When parsed is empty, a single
// file-level fallback chunk is emitted covering the whole file.
func ToStoreChunks(filePath string, fileContent string, parsed []capability.ParsedChunk) []store.Chunk {
	lines := splitLinesKeep(fileContent)
	if len(parsed) == 0 {
		return []store.Chunk{{
			ID:        store.ChunkID(filePath, 1, max(1, len(lines))),
			FilePath:  filePath,
			StartLine: 1,
			EndLine:   max(1, len(lines)),
			Type:      store.ChunkFile,
			Content:   fileContent,
		}}
	}

	out := make([]store.Chunk, 0, len(parsed))
	for _, p := range parsed {
		start, end := p.StartLine, p.EndLine
		if start < 1 {
			start = 1
		}
		if end < start {
			end = start
		}
		if end > len(lines) {
			end = len(lines)
		}
		out = append(out, store.Chunk{
			ID:         store.ChunkID(filePath, start, end),
			FilePath:   filePath,
			StartLine:  start,
			EndLine:    end,
			Type:       store.ChunkType(p.Type),
			Name:       p.Name,
			IsExported: p.IsExported,
			DocComment: p.DocComment,
			Content:    strings.Join(lines[start-1:end], "\n"),
		})
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// BuildEmbeddingInput composes the embedding-input text as
// "[<pathPrefix>] <name>: <docComment> <content>", so the embedding
// carries path/layer/domain context alongside the raw code. pathPrefix is
// layer, domain and up to three trailing path segments, joined by '/'.
func BuildEmbeddingInput(pc store.PathContext, c store.Chunk) string {
	var b strings.Builder
	b.WriteByte('[')
	if pc.Layer != "" {
		b.WriteString(pc.Layer)
	}
	if pc.Domain != "" {
		if pc.Layer != "" {
			b.WriteByte('/')
		}
		b.WriteString(pc.Domain)
	}
	segs := pc.Segments
	if len(segs) > 3 {
		segs = segs[len(segs)-3:]
	}
	for _, s := range segs {
		if b.Len() > 1 {
			b.WriteByte('/')
		}
		b.WriteString(s)
	}
	b.WriteString("] ")
	if c.Name != "" {
		b.WriteString(c.Name)
		b.WriteString(": ")
	}
	if c.DocComment != "" {
		b.WriteString(c.DocComment)
		b.WriteByte(' ')
	}
	b.WriteString(c.Content)
	return b.String()
}
