package sweep

// Engine describes one search engine's query capabilities. The planner
// consults this table to drop operators an engine does not support and to
// size site-group and exclusion chunks.
type Engine struct {
	Code  string // adapter id, e.g. "google"
	Badge string // short display tag, e.g. "G"

	SupportsMinusSite bool // -site:example.com exclusion syntax
	SupportsNOT       bool // "NOT site:example.com" exclusion syntax
	SupportsInTitle   bool
	SupportsInBody    bool
	SupportsInURL     bool
	SupportsFiletype  bool

	LocaleParam string // query parameter carrying the locale/market code
	MaxTerms    int    // max OR/minus terms per query before engines truncate

	Notes string
}

// SupportsExclusion reports whether the engine can exclude domains at all.
func (e Engine) SupportsExclusion() bool {
	return e.SupportsMinusSite || e.SupportsNOT
}

// Engines is the capability table for the built-in search engine adapters.
var Engines = map[string]Engine{
	"google": {
		Code: "google", Badge: "G",
		SupportsMinusSite: true,
		SupportsInTitle:   true,
		SupportsInBody:    false, // intext: exists but is unreliable; planner uses plain quotes
		SupportsInURL:     false, // inurl: removed from the public index in 2023
		SupportsFiletype:  true,
		LocaleParam:       "gl",
		MaxTerms:          20,
		Notes:             "32-word query cap; minus-site preferred over NOT",
	},
	"bing": {
		Code: "bing", Badge: "B",
		SupportsMinusSite: true,
		SupportsNOT:       true,
		SupportsInTitle:   true,
		SupportsInBody:    true,
		SupportsInURL:     true,
		SupportsFiletype:  true,
		LocaleParam:       "mkt",
		MaxTerms:          20,
		Notes:             "inbody:/intitle: native; NOT requires uppercase",
	},
	"duckduckgo": {
		Code: "duckduckgo", Badge: "DDG",
		SupportsMinusSite: true,
		SupportsInTitle:   true,
		SupportsInURL:     false,
		SupportsFiletype:  true,
		LocaleParam:       "kl",
		MaxTerms:          10,
		Notes:             "proxies bing operators; short queries only",
	},
	"yandex": {
		Code: "yandex", Badge: "Y",
		SupportsMinusSite: true,
		SupportsInTitle:   true,
		SupportsInURL:     true,
		SupportsFiletype:  true,
		LocaleParam:       "lr",
		MaxTerms:          20,
		Notes:             "mime: instead of filetype: on some verticals",
	},
	"brave": {
		Code: "brave", Badge: "BR",
		SupportsMinusSite: true,
		SupportsInTitle:   false,
		SupportsFiletype:  false,
		LocaleParam:       "country",
		MaxTerms:          10,
		Notes:             "no documented operator support beyond quotes and minus",
	},
	"mojeek": {
		Code: "mojeek", Badge: "MJ",
		SupportsMinusSite: true,
		SupportsInTitle:   true,
		SupportsFiletype:  false,
		LocaleParam:       "arc",
		MaxTerms:          10,
		Notes:             "independent index; useful for long-tail recall",
	},
}

// EngineCodes returns the engine identifiers in deterministic order.
func EngineCodes() []string {
	return []string{"google", "bing", "duckduckgo", "yandex", "brave", "mojeek"}
}
