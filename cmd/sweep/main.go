package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log/slog"
	nethttp "net/http"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/backlink"
	"github.com/fwojciec/sweep/crawl"
	"github.com/fwojciec/sweep/discover"
	sweepexec "github.com/fwojciec/sweep/exec"
	"github.com/fwojciec/sweep/fanout"
	"github.com/fwojciec/sweep/filetype"
	"github.com/fwojciec/sweep/fs"
	"github.com/fwojciec/sweep/gemini"
	sweephttp "github.com/fwojciec/sweep/http"
	"github.com/fwojciec/sweep/htmltomarkdown"
	"github.com/fwojciec/sweep/pdfcpu"
	"github.com/fwojciec/sweep/rod"
	sweepslog "github.com/fwojciec/sweep/slog"
	"github.com/fwojciec/sweep/sqlite"
	"github.com/fwojciec/sweep/trafilatura"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database backing the local index and the web graph.
	DB *sqlite.DB

	// Session for end-to-end testing.
	Session *discover.Session

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	for _, c := range m.closers {
		_ = c.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sweep"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sweep --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := stdlog.New(stdlog.NewTextHandler(io.Discard, nil))
	if cli.Verbose {
		logger = stdlog.New(stdlog.NewTextHandler(stderr, nil))
	}

	// Open database
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set SWEEP_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	client := sweephttp.NewClient(sweephttp.DefaultTimeout)
	localIndex := sqlite.NewLocalIndex(m.DB)
	session := &discover.Session{Index: localIndex}

	switch cmd {
	case "map":
		sources := []sweep.SourceAdapter{
			sweephttp.NewSitemapAdapter(client),
			sweephttp.NewRobotsAdapter(client),
			sweephttp.NewCrtShAdapter(client),
			sweephttp.NewHackerTargetAdapter(client),
			sweephttp.NewAnubisAdapter(client),
			sweephttp.NewRapidDNSAdapter(client),
			sweephttp.NewWaybackAdapter(client),
			sweephttp.NewMementoAdapter(client),
			&sweephttp.CCIndexAdapter{Index: sweephttp.NewCCIndex(client)},
			&crawl.Adapter{
				Fetcher: sweephttp.NewFetcher(client),
				Text:    trafilatura.NewExtractor(),
			},
			&discover.LocalSource{Index: localIndex},
		}
		if base := os.Getenv("SWEEP_MAPPER_URL"); base != "" {
			mapper := sweephttp.NewMapperClient(client, base, os.Getenv("SWEEP_MAPPER_KEY"))
			sources = append(sources,
				&sweephttp.FastMapAdapter{Client: mapper},
				&sweephttp.DeepCrawlAdapter{Client: mapper},
			)
		}
		session.Sources = sweepslog.WrapSources(sources, logger)
		session.Runner.Configs = politeConfigs("rapiddns", "crawl")

	case "search":
		scraper, err := rod.NewScraper()
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		m.closers = append(m.closers, scraper)
		session.SERP = &sweephttp.ScrapeSERP{
			Scraper: sweepslog.NewLoggingScraper(scraper, logger),
		}

	case "backlinks":
		core := &backlink.Core{
			Graph:  sqlite.NewGraphIndex(m.DB),
			Index:  sweephttp.NewCCIndex(client),
			Ranges: sweephttp.NewRangeFetcher(client, ""),
		}
		if key := os.Getenv("MAJESTIC_API_KEY"); key != "" {
			core.Provider = sweephttp.NewMajesticClient(client, key)
		}
		if dir := os.Getenv("SWEEP_OFFLINE_INDEX"); dir != "" {
			core.Offline = fs.NewOfflineIndex(dir)
			if bin := os.Getenv("SWEEP_EXTRACTOR_BIN"); bin != "" {
				core.Extractor = &sweepexec.Extractor{Path: bin, ArchiveDir: dir}
			}
		}
		session.Backlinks = core

	case "filetypes":
		ccindex := sweephttp.NewCCIndex(client)
		var serp sweep.SERPClient
		if scraper, err := rod.NewScraper(); err != nil {
			fmt.Fprintln(stderr, "Hint: Install Chrome or Chromium to add search-engine filetype sources")
		} else {
			m.closers = append(m.closers, scraper)
			serp = &sweephttp.ScrapeSERP{
				Scraper: sweepslog.NewLoggingScraper(scraper, logger),
			}
		}
		cascade := &filetype.Cascade{
			Sources:  sweepslog.WrapSources(filetypeSources(client, ccindex, localIndex, serp), logger),
			Index:    ccindex,
			Ranges:   sweephttp.NewRangeFetcher(client, ""),
			Fetcher:  sweephttp.NewFetcher(client),
			PDF:      pdfcpu.NewExtractor(),
			Markdown: htmltomarkdown.NewConverter(),
			Refiner:  trafilatura.NewExtractor(),
		}
		cascade.Runner.Configs = politeConfigs("crawl", "google", "bing")
		if base := os.Getenv("SWEEP_PARSER_URL"); base != "" {
			cascade.Parser = sweephttp.NewParserClient(client, base, os.Getenv("SWEEP_PARSER_KEY"))
		}
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  key,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
				return fmt.Errorf("failed to connect to Gemini API: %w", err)
			}
			cascade.OCR = gemini.NewOCR(genaiClient)
		}
		session.Filetypes = cascade
	}

	m.Session = session
	deps.DB = m.DB
	deps.Session = session

	return kongCtx.Run(deps)
}

// filetypeSources assembles the full filetype sweep: both archive indexes,
// the Memento aggregator, the local index replay, the recursive crawler, and
// two engine scrapers when a browser-backed SERP client is available.
func filetypeSources(client *nethttp.Client, ccindex *sweephttp.CCIndex, localIndex sweep.LocalIndex, serp sweep.SERPClient) []sweep.SourceAdapter {
	sources := []sweep.SourceAdapter{
		sweephttp.NewWaybackAdapter(client),
		&sweephttp.CCIndexAdapter{Index: ccindex},
		sweephttp.NewMementoAdapter(client),
		&discover.LocalSource{Index: localIndex},
		&crawl.Adapter{
			Fetcher: sweephttp.NewFetcher(client),
			Text:    trafilatura.NewExtractor(),
		},
	}
	if serp != nil {
		sources = append(sources,
			&sweephttp.EngineAdapter{Engine: "google", Client: serp},
			&sweephttp.EngineAdapter{Engine: "bing", Client: serp},
		)
	}
	return sources
}

// politeConfigs sets the jittered inter-task delay on sources that scrape
// pages instead of calling APIs.
func politeConfigs(sources ...string) map[string]fanout.SourceConfig {
	configs := make(map[string]fanout.SourceConfig, len(sources))
	for _, src := range sources {
		configs[src] = fanout.SourceConfig{PoliteDelay: fanout.DefaultPoliteDelay}
	}
	return configs
}

func defaultDBPath() string {
	if path := os.Getenv("SWEEP_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sweep.db"
	}
	dir := filepath.Join(home, ".sweep")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "sweep.db")
}
