package htmltomarkdown_test

import (
	"testing"

	"github.com/fwojciec/sweep/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts basic paragraph", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<p>quarterly budget review</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "quarterly budget review")
		assert.NotContains(t, md, "<p>")
	})

	t.Run("converts headings and links", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<h1>Reports</h1><p>See the <a href="https://example.com/2024.pdf">2024 report</a>.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "# Reports")
		assert.Contains(t, md, "[2024 report](https://example.com/2024.pdf)")
	})

	t.Run("converts tables", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<table><tr><th>Year</th><th>Total</th></tr><tr><td>2024</td><td>90</td></tr></table>`)

		require.NoError(t, err)
		assert.Contains(t, md, "Year")
		assert.Contains(t, md, "2024")
	})

	t.Run("strips image references", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<p>Totals below.</p><img src="/chart-revenue.png" alt="revenue chart"><p>End of section.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "Totals below.")
		assert.NotContains(t, md, "revenue chart")
		assert.NotContains(t, md, "chart-revenue.png")
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		_, err := conv.Convert("")
		assert.Error(t, err)
	})
}
