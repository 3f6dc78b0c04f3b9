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

	for i := 0; i < count; i++ {
		id, err := Generate("book")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("user")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "user-"))
	// prefix + hyphen + 21-char nanoid
	assert.Len(t, id, len("user-")+21)
}

func TestMustGenerate(t *testing.T) {
	id := MustGenerate("conv")
	assert.True(t, strings.HasPrefix(id, "conv-"))
}
