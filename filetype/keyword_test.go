package filetype_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/sweep/filetype"
	"github.com/stretchr/testify/assert"
)

func TestCountKeyword(t *testing.T) {
	t.Parallel()

	t.Run("whole words only, case-insensitive", func(t *testing.T) {
		t.Parallel()

		text := "The Budget for budgeting is not the BUDGET you want. budget!"
		count, snippet := filetype.CountKeyword(text, "budget")

		assert.Equal(t, 3, count)
		assert.Contains(t, snippet, "The Budget for")
	})

	t.Run("multi-word keyword spans whitespace", func(t *testing.T) {
		t.Parallel()

		count, _ := filetype.CountKeyword("annual  report\nannual report", "annual report")
		assert.Equal(t, 2, count)
	})

	t.Run("snippet bounded around first hit", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("x ", 300) + "needle" + strings.Repeat(" y", 300)
		count, snippet := filetype.CountKeyword(text, "needle")

		assert.Equal(t, 1, count)
		assert.Contains(t, snippet, "needle")
		assert.True(t, strings.HasPrefix(snippet, "…"))
		assert.True(t, strings.HasSuffix(snippet, "…"))
		assert.Less(t, len(snippet), 450)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		count, snippet := filetype.CountKeyword("nothing here", "budget")
		assert.Zero(t, count)
		assert.Empty(t, snippet)
	})
}
