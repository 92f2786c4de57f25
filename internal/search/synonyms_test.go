package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSynonyms_KnownTerm(t *testing.T) {
	syns := GetSynonyms("function")
	assert.NotEmpty(t, syns)
	assert.Contains(t, syns, "func")
}

func TestGetSynonyms_CaseInsensitiveLookup(t *testing.T) {
	syns := GetSynonyms("FUNCTION")
	assert.NotEmpty(t, syns)
}

func TestGetSynonyms_UnknownTermReturnsNil(t *testing.T) {
	assert.Nil(t, GetSynonyms("zzznotaword"))
}

func TestCodeSynonyms_NoEntryMapsToEmptySlice(t *testing.T) {
	for term, syns := range CodeSynonyms {
		assert.NotEmpty(t, syns, "synonym list for %q should not be empty", term)
	}
}
