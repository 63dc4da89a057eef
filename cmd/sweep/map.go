package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/discover"
)

// Run executes the map command.
func (c *MapCmd) Run(deps *Dependencies) error {
	run, err := deps.Session.DiscoverDomain(deps.Ctx, discover.DomainRequest{
		Target: sweep.Target{Domain: c.Domain},
		Options: sweep.DiscoverOptions{
			Mode:          sweep.Mode(c.Mode),
			AllowExternal: c.External,
			Limit:         c.Limit,
		},
		Sources: c.Sources,
		Record:  c.Record,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sweep.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	for rec := range run.Records {
		if c.JSON {
			if err := enc.Encode(rec); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(deps.Stdout, "%-12s %s\n", rec.Source, rec.URL)
	}

	summary := run.Wait()
	printSummary(deps.Stderr, summary)
	return nil
}

// printSummary renders per-source counts to stderr so stdout stays pipeable.
func printSummary(w io.Writer, s sweep.Summary) {
	fmt.Fprintf(w, "\n%d records in %s\n", s.Total, s.Elapsed.Round(time.Millisecond))
	for _, st := range s.Stats {
		status := ""
		if st.Disabled {
			status = "  (disabled)"
		} else if st.LastErr != "" {
			status = "  (" + st.LastErr + ")"
		}
		fmt.Fprintf(w, "  %-14s %5d records  %d errors%s\n", st.Source, st.Records, st.Errors, status)
	}
}
