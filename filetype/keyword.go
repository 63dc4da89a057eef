package filetype

import (
	"regexp"
	"strings"
)

// snippetRadius is how many characters either side of the first hit make it
// into the snippet.
const snippetRadius = 200

// CountKeyword counts case-insensitive whole-word occurrences of keyword in
// text and returns a snippet around the first hit. Multi-word keywords match
// across any whitespace run.
func CountKeyword(text, keyword string) (int, string) {
	re := keywordRegexp(keyword)
	if re == nil {
		return 0, ""
	}

	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return 0, ""
	}
	return len(locs), snippetAround(text, locs[0][0], locs[0][1])
}

// keywordRegexp builds the whole-word matcher, nil for a blank keyword.
func keywordRegexp(keyword string) *regexp.Regexp {
	words := strings.Fields(keyword)
	if len(words) == 0 {
		return nil
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
}

// snippetAround cuts up to snippetRadius characters either side of the match
// at [start, end), snapping to rune boundaries and collapsing newlines.
func snippetAround(text string, start, end int) string {
	lo := start - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !isRuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !isRuneStart(text[hi]) {
		hi++
	}

	snippet := strings.Join(strings.Fields(text[lo:hi]), " ")
	if lo > 0 {
		snippet = "…" + snippet
	}
	if hi < len(text) {
		snippet += "…"
	}
	return snippet
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
