package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fwojciec/sweep"
)

// Compile-time interface assertion.
var _ sweep.BacklinkProvider = (*MajesticClient)(nil)

const defaultMajesticBase = "https://api.majestic.com/api/json"

// MajesticClient queries a Majestic-style backlink API for referring
// domains with trust and citation flow scores.
type MajesticClient struct {
	client *http.Client
	apiKey string

	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// NewMajesticClient creates a MajesticClient.
func NewMajesticClient(client *http.Client, apiKey string) *MajesticClient {
	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	return &MajesticClient{client: client, apiKey: apiKey, BaseURL: defaultMajesticBase}
}

// RefDomains returns the top referring domains for the target.
func (m *MajesticClient) RefDomains(ctx context.Context, domain string, limit int) ([]sweep.RefDomain, error) {
	if m.apiKey == "" {
		return nil, sweep.Errorf(sweep.EPERMISSION, "majestic API key required")
	}
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("app_api_key", m.apiKey)
	params.Set("cmd", "GetRefDomains")
	params.Set("item0", domain)
	params.Set("Count", strconv.Itoa(limit))

	body, err := get(ctx, m.client, m.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code         string `json:"Code"`
		ErrorMessage string `json:"ErrorMessage"`
		DataTables   struct {
			Results struct {
				Data []struct {
					Domain       string `json:"Domain"`
					ExtBackLinks int    `json:"ExtBackLinks"`
					TrustFlow    int    `json:"TrustFlow"`
					CitationFlow int    `json:"CitationFlow"`
				} `json:"Data"`
			} `json:"Results"`
		} `json:"DataTables"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sweep.WrapError(sweep.EINVALID, err, "decoding majestic response")
	}
	if resp.Code != "OK" {
		if resp.Code == "AccessDenied" || resp.Code == "InsufficientResources" {
			return nil, sweep.Errorf(sweep.EPERMISSION, "majestic: %s", resp.ErrorMessage)
		}
		return nil, sweep.Errorf(sweep.EUNAVAILABLE, "majestic: %s", resp.ErrorMessage)
	}

	out := make([]sweep.RefDomain, 0, len(resp.DataTables.Results.Data))
	for _, d := range resp.DataTables.Results.Data {
		out = append(out, sweep.RefDomain{
			Domain:       d.Domain,
			Backlinks:    d.ExtBackLinks,
			TrustFlow:    d.TrustFlow,
			CitationFlow: d.CitationFlow,
		})
	}
	return out, nil
}
