package nanoid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	id := String()
	assert.Len(t, id, defaultSize)
	for _, r := range id {
		assert.True(t, strings.ContainsRune(Alphanumeric, r))
	}
	assert.Len(t, String(8), 8)
	assert.NotEqual(t, String(), String())
}

func TestFileName(t *testing.T) {
	assert.True(t, strings.HasSuffix(FileName("png"), ".png"))
	assert.True(t, strings.HasSuffix(FileName(".ttf"), ".ttf"))
	assert.Len(t, FileName(""), defaultSize)
}
