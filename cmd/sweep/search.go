package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/discover"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	opts := discover.RecallOptions{
		Engines:       c.Engines,
		Locales:       c.Locales,
		Extensions:    c.Extensions,
		MaxIterations: c.Iterations,
	}
	if len(c.Sites) > 0 {
		opts.SiteGroups = [][]string{c.Sites}
	}

	run, err := deps.Session.RecallSearch(deps.Ctx, c.Phrase, opts)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sweep.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	for hit := range run.Results {
		if c.JSON {
			if err := enc.Encode(hit); err != nil {
				return err
			}
			continue
		}
		tag := hit.EngineBadge
		if tag == "" {
			tag = hit.Engine
		}
		if hit.SearchType == sweep.SearchTypeException {
			tag += fmt.Sprintf("+%d", hit.Iteration)
		}
		fmt.Fprintf(deps.Stdout, "[%s] %s  %s\n", tag, hit.URL, hit.Title)
	}

	printSummary(deps.Stderr, run.Wait())
	return nil
}
