package search

import (
	"testing"

	"github.com/conradkoh/raggrep/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A backtick literal is high-confidence and removed from the residual
// query.
func TestParseQuery_ExplicitBacktick(t *testing.T) {
	pq := ParseQuery("find `createSession` usages")
	require.Len(t, pq.Literals, 1)
	lit := pq.Literals[0]
	assert.Equal(t, "createSession", lit.Value)
	assert.Equal(t, store.ConfidenceHigh, lit.Confidence)
	assert.Equal(t, store.DetectExplicitBacktick, lit.DetectionMethod)

	for _, tok := range pq.FreeTerms {
		assert.NotContains(t, tok, "createsession")
	}
}

func TestParseQuery_ExplicitDoubleQuote(t *testing.T) {
	pq := ParseQuery(`search for "getUserById" now`)
	require.Len(t, pq.Literals, 1)
	assert.Equal(t, "getUserById", pq.Literals[0].Value)
	assert.Equal(t, store.DetectExplicitQuote, pq.Literals[0].DetectionMethod)
}

func TestParseQuery_ImplicitPascalCase(t *testing.T) {
	pq := ParseQuery("where is UserController defined")
	require.NotEmpty(t, pq.Literals)
	found := false
	for _, l := range pq.Literals {
		if l.Value == "UserController" {
			found = true
			assert.Equal(t, store.ConfidenceMedium, l.Confidence)
			assert.Equal(t, store.DetectImplicitCasing, l.DetectionMethod)
		}
	}
	assert.True(t, found)
}

func TestParseQuery_ImplicitSnakeCase(t *testing.T) {
	pq := ParseQuery("what does get_user_by_id do")
	found := false
	for _, l := range pq.Literals {
		if l.Value == "get_user_by_id" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseQuery_ImplicitKebabCase(t *testing.T) {
	pq := ParseQuery("look at the user-service module")
	found := false
	for _, l := range pq.Literals {
		if l.Value == "user-service" {
			found = true
		}
	}
	assert.True(t, found)
}

// Implicit matches overlapping an explicit span are dropped; duplicate
// values are deduped.
func TestParseQuery_ExplicitSuppressesOverlappingImplicit(t *testing.T) {
	pq := ParseQuery("find `getUserById` please")
	count := 0
	for _, l := range pq.Literals {
		if l.Value == "getUserById" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParseQuery_DedupesDuplicateValues(t *testing.T) {
	pq := ParseQuery("`login` and `login` again")
	count := 0
	for _, l := range pq.Literals {
		if l.Value == "login" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParseQuery_EmptyBacktickIgnored(t *testing.T) {
	pq := ParseQuery("find `` nothing here")
	for _, l := range pq.Literals {
		assert.NotEqual(t, "", l.Value)
	}
}

func TestParseQuery_NoLiteralsInPlainQuery(t *testing.T) {
	pq := ParseQuery("find the user authentication flow")
	assert.NotEmpty(t, pq.FreeTerms)
}
