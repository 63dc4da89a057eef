package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sweep"
)

// Run executes the filetypes command.
func (c *FiletypesCmd) Run(deps *Dependencies) error {
	resp, err := deps.Session.DiscoverFiletypes(deps.Ctx, sweep.FiletypeRequest{
		Domain:  c.Domain,
		Types:   c.Types,
		Keyword: c.Keyword,
		Limit:   c.Limit,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sweep.ErrorMessage(err))
		return err
	}

	if c.JSON {
		return json.NewEncoder(deps.Stdout).Encode(resp)
	}

	for _, rec := range resp.Results {
		fmt.Fprintf(deps.Stdout, "%-12s %s\n", rec.Source, rec.URL)
	}

	if len(resp.ContentMatches) > 0 {
		fmt.Fprintf(deps.Stdout, "\ndocuments containing %q:\n", c.Keyword)
		for _, m := range resp.ContentMatches {
			fmt.Fprintf(deps.Stdout, "  %3dx [%s] %s\n", m.KeywordMatches, m.ExtractionMethod, m.URL)
			if m.Snippet != "" {
				fmt.Fprintf(deps.Stdout, "       %s\n", m.Snippet)
			}
		}
	}

	printSummary(deps.Stderr, resp.Summary)
	return nil
}
