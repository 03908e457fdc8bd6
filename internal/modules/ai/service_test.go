package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestOneLine(t *testing.T) {
	assert.Equal(t, "fixed the left sling", oneLine("fixed  the\nleft   sling"))

	long := strings.Repeat("é", 250)
	got := oneLine(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 197)+"...", got)
}
