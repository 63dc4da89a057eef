package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.DocParser = (*DocParser)(nil)

// DocParser is a mock implementation of sweep.DocParser.
type DocParser struct {
	ParseFn func(ctx context.Context, url string) (string, error)
}

func (d *DocParser) Parse(ctx context.Context, url string) (string, error) {
	return d.ParseFn(ctx, url)
}

var _ sweep.PDFTextExtractor = (*PDFTextExtractor)(nil)

// PDFTextExtractor is a mock implementation of sweep.PDFTextExtractor.
type PDFTextExtractor struct {
	ExtractTextFn func(ctx context.Context, pdf []byte) (string, error)
}

func (p *PDFTextExtractor) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	return p.ExtractTextFn(ctx, pdf)
}

var _ sweep.VisionOCR = (*VisionOCR)(nil)

// VisionOCR is a mock implementation of sweep.VisionOCR.
type VisionOCR struct {
	OCRFn func(ctx context.Context, pdf []byte) (string, error)
}

func (v *VisionOCR) OCR(ctx context.Context, pdf []byte) (string, error) {
	return v.OCRFn(ctx, pdf)
}

var _ sweep.TextExtractor = (*TextExtractor)(nil)

// TextExtractor is a mock implementation of sweep.TextExtractor.
type TextExtractor struct {
	TextFn func(html string) (string, string, error)
}

func (t *TextExtractor) Text(html string) (string, string, error) {
	return t.TextFn(html)
}
