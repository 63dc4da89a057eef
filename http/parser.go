package http

import (
	"context"
	"net/http"

	"github.com/fwojciec/sweep"
)

// Compile-time interface assertion.
var _ sweep.DocParser = (*ParserClient)(nil)

// ParserClient is the cloud document-parsing service, the first tier of the
// filetype cascade: the document URL goes up, markdown comes back.
type ParserClient struct {
	client *MapperClient
}

// NewParserClient creates a ParserClient against the service at baseURL.
func NewParserClient(client *http.Client, baseURL, apiKey string) *ParserClient {
	return &ParserClient{client: NewMapperClient(client, baseURL, apiKey)}
}

// Parse submits the URL for parsing and returns the document text as
// markdown.
func (p *ParserClient) Parse(ctx context.Context, url string) (string, error) {
	var resp struct {
		Success  bool   `json:"success"`
		Markdown string `json:"markdown"`
		Error    string `json:"error"`
	}
	req := map[string]any{"url": url, "parsers": []string{"pdf"}}
	if err := p.client.post(ctx, "/v1/parse", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", sweep.Errorf(sweep.EUNAVAILABLE, "parser rejected %s: %s", url, resp.Error)
	}
	return resp.Markdown, nil
}
