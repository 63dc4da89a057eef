// Package trafilatura extracts readable text from HTML for exact-phrase
// verification and archived-page keyword search.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/sweep"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements sweep.TextExtractor at compile time.
var _ sweep.TextExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to pull the main content out of a page,
// dropping navigation, boilerplate, and script text.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Text returns the page title and readable body text.
func (e *Extractor) Text(rawHTML string) (title, text string, err error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", "", sweep.Errorf(sweep.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return "", "", sweep.WrapError(sweep.EINVALID, err, "extracting page text")
	}

	return result.Metadata.Title, result.ContentText, nil
}

// ContentHTML returns the page title and the main content subtree rendered
// back to HTML, with navigation and boilerplate removed.
func (e *Extractor) ContentHTML(rawHTML string) (title, contentHTML string, err error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", "", sweep.Errorf(sweep.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return "", "", sweep.WrapError(sweep.EINVALID, err, "extracting page content")
	}

	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return "", "", sweep.WrapError(sweep.EINTERNAL, err, "rendering content node")
		}
	}
	return result.Metadata.Title, contentHTML, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
