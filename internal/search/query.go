package search

import (
	"regexp"
	"strings"

	"github.com/conradkoh/raggrep/internal/store"
)

// Regex building blocks for implicit literal detection: screaming-snake,
// PascalCase, camelCase, snake_case and kebab-case identifier shapes.
var (
	backtickPattern  = regexp.MustCompile("`([^`]+)`")
	dquotePattern    = regexp.MustCompile(`"([^"]+)"`)
	squotePattern    = regexp.MustCompile(`'([^']+)'`)
	pascalCasePattern     = regexp.MustCompile(`\b([A-Z][a-z0-9]*){2,}\b`)
	camelCasePattern      = regexp.MustCompile(`\b[a-z]+([A-Z][a-z0-9]*)+\b`)
	screamingSnakePattern = regexp.MustCompile(`\b[A-Z]+(_[A-Z0-9]+)+\b`)
	snakeCasePattern      = regexp.MustCompile(`\b[a-z]+(_[a-z0-9]+)+\b`)
	kebabCasePattern      = regexp.MustCompile(`\b[a-z]+(-[a-z0-9]+)+\b`)
)

// ParsedQuery is the result of parsing a raw user query: the detected
// literals plus the residual free-text terms once every literal span
// has been blanked out.
type ParsedQuery struct {
	Raw       string
	Literals  []store.DetectedLiteral
	FreeTerms []string
}

// ParseQuery runs the two-phase literal detector (explicit backtick/quote
// spans first, then implicit casing detection over what's left) and
// returns the detected literals plus the residual tokenized free text.
func ParseQuery(raw string) ParsedQuery {
	remaining := []rune(raw)
	var literals []store.DetectedLiteral

	for _, m := range findAndBlank(&remaining, backtickPattern, 1) {
		literals = append(literals, store.DetectedLiteral{
			Value: m.value, RawValue: m.raw, Confidence: store.ConfidenceHigh,
			DetectionMethod: store.DetectExplicitBacktick,
			SpanStart:       m.start, SpanEnd: m.end,
		})
	}
	for _, m := range findAndBlank(&remaining, dquotePattern, 1) {
		literals = append(literals, store.DetectedLiteral{
			Value: m.value, RawValue: m.raw, Confidence: store.ConfidenceHigh,
			DetectionMethod: store.DetectExplicitQuote,
			SpanStart:       m.start, SpanEnd: m.end,
		})
	}
	for _, m := range findAndBlank(&remaining, squotePattern, 1) {
		literals = append(literals, store.DetectedLiteral{
			Value: m.value, RawValue: m.raw, Confidence: store.ConfidenceHigh,
			DetectionMethod: store.DetectExplicitQuote,
			SpanStart:       m.start, SpanEnd: m.end,
		})
	}

	// Implicit detection only runs over what explicit detection left
	// blank-free: a backtick-quoted phrase is never re-detected by casing.
	implicitPatterns := []*regexp.Regexp{
		screamingSnakePattern, pascalCasePattern, camelCasePattern, snakeCasePattern, kebabCasePattern,
	}
	for _, pat := range implicitPatterns {
		for _, m := range findAndBlank(&remaining, pat, 0) {
			literals = append(literals, store.DetectedLiteral{
				Value: m.value, RawValue: m.raw, Confidence: store.ConfidenceMedium,
				DetectionMethod: store.DetectImplicitCasing,
				InferredType:    inferLiteralType(m.value),
				SpanStart:       m.start, SpanEnd: m.end,
			})
		}
	}

	literals = dedupLiterals(literals)

	freeText := string(remaining)
	freeTerms := store.Tokenize(freeText)

	return ParsedQuery{Raw: raw, Literals: literals, FreeTerms: freeTerms}
}

type querySpanMatch struct {
	raw, value   string
	start, end   int
}

// findAndBlank finds every match of pat in *remaining, records it (the
// capture group stripGroup, or the whole match if stripGroup==0), and
// overwrites the matched runes with spaces so later passes don't see them
// again: span blanking means explicit and implicit detection never
// double-count the same text.
func findAndBlank(remaining *[]rune, pat *regexp.Regexp, stripGroup int) []querySpanMatch {
	text := string(*remaining)
	idxs := pat.FindAllStringSubmatchIndex(text, -1)
	if idxs == nil {
		return nil
	}

	var out []querySpanMatch
	for _, idx := range idxs {
		start, end := idx[0], idx[1]
		value := text[start:end]
		raw := value
		if stripGroup > 0 && len(idx) >= (stripGroup+1)*2 {
			gs, ge := idx[stripGroup*2], idx[stripGroup*2+1]
			if gs >= 0 && ge >= 0 {
				value = text[gs:ge]
			}
		}
		out = append(out, querySpanMatch{raw: raw, value: value, start: start, end: end})
	}

	runes := *remaining
	for _, m := range out {
		rs, re := byteToRuneIndex(text, m.start), byteToRuneIndex(text, m.end)
		for i := rs; i < re && i < len(runes); i++ {
			runes[i] = ' '
		}
	}
	*remaining = runes

	return out
}

func byteToRuneIndex(s string, byteIdx int) int {
	count := 0
	for i := range s {
		if i >= byteIdx {
			return count
		}
		count++
	}
	return count
}

// dedupLiterals drops later duplicates of the same value, keeping the
// first (highest-priority detector's) entry.
func dedupLiterals(literals []store.DetectedLiteral) []store.DetectedLiteral {
	seen := make(map[string]struct{}, len(literals))
	out := make([]store.DetectedLiteral, 0, len(literals))
	for _, l := range literals {
		key := strings.ToLower(l.Value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// inferLiteralType makes a best-effort guess at an implicitly-detected
// literal's kind from its casing alone.
func inferLiteralType(value string) store.LiteralType {
	switch {
	case screamingSnakePattern.MatchString(value):
		return store.LiteralVariableName
	case pascalCasePattern.MatchString(value):
		return store.LiteralClassName
	case camelCasePattern.MatchString(value):
		return store.LiteralFunctionName
	default:
		return store.LiteralIdentifier
	}
}
