package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsUniqueAndCanonical(t *testing.T) {
	a := Generate()
	b := Generate()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
	assert.Len(t, a.String(), 36)
}

func TestParseRoundTrip(t *testing.T) {
	a := Generate()
	assert.Equal(t, a, Parse(a.String()))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	// Only the canonical hyphenated form is accepted: no bare hex, no
	// braces, no urn prefix.
	cases := []string{
		"",
		"not-a-uuid",
		"30f0ccd49a0a4a4195dd4d03257d46a9",
		"30f0ccd4-9a0a-4a41-95dd-4d03257d46a9-extra",
		"zzzzzzzz-9a0a-4a41-95dd-4d03257d46a9",
		"{30f0ccd4-9a0a-4a41-95dd-4d03257d46a9}",
		"urn:uuid:30f0ccd4-9a0a-4a41-95dd-4d03257d46a9",
	}
	for _, c := range cases {
		assert.True(t, Parse(c).IsNil(), "input %q", c)
	}
}

func TestSeedMakesGenerationDeterministic(t *testing.T) {
	Seed(42)
	first := []UUID{Generate(), Generate(), Generate()}

	Seed(42)
	second := []UUID{Generate(), Generate(), Generate()}

	require.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
}

func TestCompareGivesTotalOrder(t *testing.T) {
	a := Parse("00000000-0000-4000-8000-000000000001")
	b := Parse("00000000-0000-4000-8000-000000000002")
	require.False(t, a.IsNil())
	require.False(t, b.IsNil())

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestHashIsStablePerID(t *testing.T) {
	a := Generate()
	assert.Equal(t, a.Hash(), a.Hash())
	assert.NotEqual(t, a.Hash(), Generate().Hash())
}
