package main

import (
	"context"
	"io"

	"github.com/fwojciec/sweep/discover"
	"github.com/fwojciec/sweep/sqlite"
)

// Dependencies holds the services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	DB      *sqlite.DB
	Session *discover.Session
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Map       MapCmd       `cmd:"" help:"Map every discoverable URL on a domain"`
	Search    SearchCmd    `cmd:"" help:"Recall-maximizing exact-phrase search across engines"`
	Backlinks BacklinksCmd `cmd:"" help:"Discover pages linking to a domain"`
	Filetypes FiletypesCmd `cmd:"" help:"Find documents of specific types on a domain"`

	Verbose bool `short:"v" help:"Log adapter activity to stderr"`
}

// MapCmd is the "map" subcommand.
type MapCmd struct {
	Domain   string   `arg:"" help:"Target domain, e.g. example.com"`
	Mode     string   `default:"fast" enum:"fast,deep" help:"fast: single-call sources; deep: adds crawl and archive sweeps"`
	Sources  []string `short:"s" help:"Restrict to the named sources (repeatable)"`
	External bool     `help:"Include URLs outside the target domain"`
	Limit    int      `short:"l" help:"Max records per source, 0 = unbounded"`
	Record   bool     `help:"Write results into the local index"`
	JSON     bool     `help:"Emit records as JSON lines"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Phrase     string   `arg:"" help:"Exact phrase; quote it to require the phrase in results"`
	Engines    []string `short:"e" help:"Engines to query (default all)"`
	Sites      []string `help:"Host patterns forming one site-group chunk (repeatable)"`
	Locales    []string `help:"Market codes, e.g. en-US (repeatable)"`
	Extensions []string `help:"Filetype extensions to expand (repeatable)"`
	Iterations int      `default:"3" help:"Max domain-exclusion passes after the main fan-out"`
	JSON       bool     `help:"Emit results as JSON lines"`
}

// BacklinksCmd is the "backlinks" subcommand.
type BacklinksCmd struct {
	Domain   string `arg:"" help:"Target domain"`
	Anchors  bool   `default:"true" negatable:"" help:"Include anchor text"`
	Archives bool   `default:"true" negatable:"" help:"Expand host candidates through archived captures"`
	Top      int    `default:"10" help:"Host-level candidates to expand at page level"`
	Archive  string `help:"Specific archive collection id, empty = latest"`
	JSON     bool   `help:"Emit links as JSON lines"`
}

// FiletypesCmd is the "filetypes" subcommand.
type FiletypesCmd struct {
	Domain  string   `arg:"" help:"Target domain"`
	Types   []string `short:"t" default:"pdf" help:"Extensions to look for (repeatable)"`
	Keyword string   `short:"k" help:"Keyword to search inside found documents"`
	Limit   int      `short:"l" help:"Max records per source, 0 = unbounded"`
	JSON    bool     `help:"Emit results as JSON lines"`
}
