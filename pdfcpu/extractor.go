// Package pdfcpu implements local PDF text extraction, the third tier of the
// filetype cascade. It needs no network and no API key, but only works on
// PDFs with a real text layer.
package pdfcpu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fwojciec/sweep"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Compile-time interface assertion.
var _ sweep.PDFTextExtractor = (*Extractor)(nil)

// Extractor extracts text from PDF bytes using pdfcpu. pdfcpu works on
// files, so each call round-trips through a scratch directory.
type Extractor struct {
	tempDir string
}

// NewExtractor creates an Extractor with a scratch directory under the
// system temp dir.
func NewExtractor() *Extractor {
	tempDir := filepath.Join(os.TempDir(), "sweep-pdf")
	os.MkdirAll(tempDir, 0o755)
	return &Extractor{tempDir: tempDir}
}

// ExtractText extracts the text layer from pdf. Scanned PDFs with no text
// layer yield an empty or near-empty string; the cascade treats short output
// as a miss and falls through to OCR.
func (e *Extractor) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", sweep.WrapError(sweep.ECANCELED, err, "pdf extraction")
	}

	id := uuid.New().String()
	tempFile := filepath.Join(e.tempDir, id+".pdf")
	if err := os.WriteFile(tempFile, pdf, 0o644); err != nil {
		return "", sweep.WrapError(sweep.EINTERNAL, err, "writing scratch PDF")
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", sweep.WrapError(sweep.EINVALID, err, "reading PDF structure")
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, "pages_"+id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", sweep.WrapError(sweep.EINTERNAL, err, "creating scratch dir")
	}
	defer os.RemoveAll(outDir)

	// pdfcpu has no direct text extraction; it dumps per-page content
	// streams which still contain the text show operators.
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", sweep.WrapError(sweep.EINVALID, err, "extracting PDF content")
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = contentStreamText(string(content))
	}

	var out strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// Text show operators: (string) Tj, (string) ' and [(a) -120 (b)] TJ.
var (
	tjPattern = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|')`)
	arrPattern = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	strInArr  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// contentStreamText pulls the literal strings shown by text operators out of
// a raw content stream, in stream order.
func contentStreamText(stream string) string {
	var parts []string
	for _, m := range tjPattern.FindAllStringSubmatch(stream, -1) {
		parts = append(parts, unescapePDFString(m[1]))
	}
	for _, m := range arrPattern.FindAllStringSubmatch(stream, -1) {
		var run strings.Builder
		for _, s := range strInArr.FindAllStringSubmatch(m[1], -1) {
			run.WriteString(unescapePDFString(s[1]))
		}
		if run.Len() > 0 {
			parts = append(parts, run.String())
		}
	}
	return strings.Join(parts, " ")
}

// unescapePDFString resolves the literal-string escapes from PDF syntax.
func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n", `\r`, "\r", `\t`, "\t",
		`\(`, "(", `\)`, ")", `\\`, `\`,
	)
	return replacer.Replace(s)
}
