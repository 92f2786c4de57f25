package store

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric sequences (including underscores and
// hyphens for initial splitting, so kebab-case survives to SplitIdentifier).
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_-]+`)

// Tokenize splits text with code-aware rules: splits on non-identifier
// punctuation, then on casing/separator boundaries, then lowercases and
// drops tokens of length <= 1.
func Tokenize(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		for _, t := range SplitIdentifier(word) {
			lower := strings.ToLower(t)
			if len(lower) > 1 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// TokenizeCode is the historical alias for Tokenize.
func TokenizeCode(text string) []string { return Tokenize(text) }

// SplitIdentifier splits an identifier on snake_case, kebab-case and
// camelCase/PascalCase/SCREAMING_SNAKE_CASE boundaries.
func SplitIdentifier(token string) []string {
	var result []string

	if strings.ContainsAny(token, "_-") {
		parts := strings.FieldsFunc(token, func(r rune) bool { return r == '_' || r == '-' })
		for _, part := range parts {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}

	return SplitCamelCase(token)
}

// SplitCodeToken is the historical alias for SplitIdentifier.
func SplitCodeToken(token string) []string { return SplitIdentifier(token) }

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// Split if previous is lowercase OR next is lowercase (handles acronyms)
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, isStop := stopWords[lower]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// commonKeywords is the denylist of generic-language-keyword tokens that
// never count as meaningful FileSummary.Keywords, even though they
// survive Tokenize/FilterStopWords as ordinary identifier pieces.
var commonKeywords = BuildStopWordMap([]string{
	"func", "function", "return", "returns", "var", "let", "const",
	"if", "else", "for", "while", "switch", "case", "break", "continue",
	"import", "package", "interface", "struct", "class", "type", "enum",
	"public", "private", "protected", "static", "async", "await", "new",
	"this", "self", "nil", "null", "true", "false", "err", "error",
})

// IsCommonKeyword reports whether a lowercased token is a generic
// language keyword excluded from FileSummary.Keywords.
func IsCommonKeyword(token string) bool {
	_, found := commonKeywords[strings.ToLower(token)]
	return found
}
