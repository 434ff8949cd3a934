package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		token, err := Generate("x")
		require.NoError(t, err)
		assert.False(t, ids[token], "token should be unique: %s", token)
		ids[token] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	token, err := Generate("x")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "x-"))
	assert.Len(t, token, len("x-")+tokenLength)
	assert.Equal(t, strings.ToLower(token), token)
	assert.True(t, HasPrefix(token, "x"))
	assert.False(t, HasPrefix(token, "y"))

	for _, r := range strings.TrimPrefix(token, "x-") {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerate_NoPrefix(t *testing.T) {
	token, err := Generate("")
	require.NoError(t, err)
	assert.Len(t, token, tokenLength)
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, HasPrefix(MustGenerate("run"), "run"))
	})
}
