// Package htmltomarkdown converts archived HTML documents to markdown so the
// filetype content search can treat web pages and parsed documents uniformly.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/sweep"
)

// Converter wraps html-to-markdown.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// imageRefs matches markdown image references. The converted text feeds
// keyword counting, where image alt text and data URIs only add noise.
var imageRefs = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)

// blankRuns matches the runs of blank lines stripped elements leave behind.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// Convert transforms HTML content into Markdown with image references
// removed.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", sweep.Errorf(sweep.EINVALID, "empty HTML input")
	}

	result, err := c.conv.ConvertString(html)
	if err != nil {
		return "", err
	}

	md := imageRefs.ReplaceAllString(result, "")
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md), nil
}
