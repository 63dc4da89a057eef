package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/sweep"
)

// Run executes the backlinks command.
func (c *BacklinksCmd) Run(deps *Dependencies) error {
	result, err := deps.Session.DiscoverBacklinks(deps.Ctx, sweep.Target{Domain: c.Domain}, sweep.BacklinkOptions{
		IncludeAnchorText: c.Anchors,
		IncludeArchives:   c.Archives,
		TopDomains:        c.Top,
		Archive:           c.Archive,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sweep.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	for _, link := range result.Links {
		if c.JSON {
			if err := enc.Encode(link); err != nil {
				return err
			}
			continue
		}
		line := fmt.Sprintf("%-14s %s -> %s", link.Provider, link.SourceURL, link.TargetURL)
		if link.AnchorText != "" {
			line += fmt.Sprintf("  %q", link.AnchorText)
		}
		if link.Weight > 0 {
			line += fmt.Sprintf("  (%d links)", link.Weight)
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	fmt.Fprintf(deps.Stderr, "\nproviders: %s\n", strings.Join(result.Providers, ", "))
	printSummary(deps.Stderr, result.Summary)
	return nil
}
