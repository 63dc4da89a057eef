// Package gemini implements vision OCR using Google Gemini, the last tier of
// the filetype cascade for scanned documents with no text layer.
package gemini

import (
	"context"

	"github.com/fwojciec/sweep"
	"google.golang.org/genai"
)

const model = "gemini-2.5-flash"

// maxDocumentBytes caps what is sent to the vision model. Larger documents
// are rejected before upload; the cascade reports them unreadable instead.
const maxDocumentBytes = 10 << 20

// Ensure OCR implements sweep.VisionOCR at compile time.
var _ sweep.VisionOCR = (*OCR)(nil)

// OCR implements sweep.VisionOCR using Google Gemini.
type OCR struct {
	client *genai.Client
}

// NewOCR creates a new OCR.
func NewOCR(client *genai.Client) *OCR {
	return &OCR{client: client}
}

// OCR submits the PDF to the vision model and returns the transcribed text.
func (o *OCR) OCR(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", sweep.Errorf(sweep.EINVALID, "empty document")
	}
	if len(pdf) > maxDocumentBytes {
		return "", sweep.Errorf(sweep.EINVALID, "document exceeds %d byte OCR limit", maxDocumentBytes)
	}

	result, err := o.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
				{Text: "Transcribe every piece of text in this document, in reading order. Output only the transcription."},
			},
		}},
		BuildConfig(),
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", sweep.Errorf(sweep.EINTERNAL, "gemini returned nil result")
	}

	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for OCR calls. Temperature
// zero keeps transcription deterministic.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You are a document transcription engine. Transcribe text faithfully. Never summarize, never add commentary.",
			}},
		},
		Temperature: &temp,
	}
}
