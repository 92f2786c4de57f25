package search

import (
	"sort"
	"strings"
)

// Score adjustment constants for post-scoring ranking nudges: real
// implementations should outrank their own tests and CLI wrappers for
// the same query.
const (
	// TestFilePenalty reduces test file scores so implementations rank
	// above the tests that exercise them.
	TestFilePenalty = 0.5

	// InternalPathBoost increases scores for implementation code under
	// internal/.
	InternalPathBoost = 1.3

	// CmdPathPenalty reduces scores for CLI wrapper code under cmd/.
	CmdPathPenalty = 0.6
)

// ApplyTestFilePenalty multiplies every test file's score by
// TestFilePenalty and re-sorts. Test files tend to repeat the production
// signatures they exercise, which otherwise lets them outrank the real
// implementation on term overlap alone.
func ApplyTestFilePenalty(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}
	for i := range results {
		if IsTestFile(results[i].Chunk.FilePath) {
			results[i].Score *= TestFilePenalty
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// ApplyPathBoost boosts internal/ implementation code and penalizes
// cmd/ wrapper code, then re-sorts.
func ApplyPathBoost(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}
	for i := range results {
		path := results[i].Chunk.FilePath
		if IsImplementationPath(path) {
			results[i].Score *= InternalPathBoost
		}
		if IsWrapperPath(path) {
			results[i].Score *= CmdPathPenalty
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// IsTestFile reports whether filePath looks like a test file across
// Go, JS/TS and Python conventions.
func IsTestFile(filePath string) bool {
	if strings.HasSuffix(filePath, "_test.go") {
		return true
	}
	if strings.Contains(filePath, ".test.") || strings.Contains(filePath, ".spec.") {
		return true
	}
	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}
	if strings.HasPrefix(fileName, "test_") && strings.HasSuffix(fileName, ".py") {
		return true
	}
	if strings.HasSuffix(fileName, "_test.py") {
		return true
	}
	if strings.Contains(filePath, "/test/") || strings.Contains(filePath, "/tests/") {
		return true
	}
	if strings.HasPrefix(filePath, "test/") || strings.HasPrefix(filePath, "tests/") {
		return true
	}
	if strings.Contains(filePath, "/__tests__/") || strings.HasPrefix(filePath, "__tests__/") {
		return true
	}
	return false
}

// IsImplementationPath reports whether filePath is under an internal/ tree.
func IsImplementationPath(filePath string) bool {
	return strings.HasPrefix(filePath, "internal/") || strings.Contains(filePath, "/internal/")
}

// IsWrapperPath reports whether filePath is under a cmd/ tree.
func IsWrapperPath(filePath string) bool {
	return strings.HasPrefix(filePath, "cmd/") || strings.Contains(filePath, "/cmd/")
}
