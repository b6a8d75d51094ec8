package util // import "github.com/Xunop/e-oasis-mcp/internal/util"

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	scriptMatcher        = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleMatcher         = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	blockTagMatcher      = regexp.MustCompile(`(?i)<\s*/?\s*(?:p|div|br|h[1-6]|li|tr)\b[^>]*>`)
	tagMatcher           = regexp.MustCompile(`(?s)<[^>]*>`)
	numericEntityMatcher = regexp.MustCompile(`&#[xX]?[0-9a-fA-F]+;`)
	spaceMatcher         = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	lineEdgeMatcher      = regexp.MustCompile(` *\n *`)
	blankLinesMatcher    = regexp.MustCompile(`\n{3,}`)
)

// &amp; is decoded last so "&amp;lt;" stays "&lt;".
var namedEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&mdash;", "—",
	"&ndash;", "–",
	"&hellip;", "…",
	"&lsquo;", "‘",
	"&rsquo;", "’",
	"&ldquo;", "“",
	"&rdquo;", "”",
	"&copy;", "©",
)

// HTMLToText turns chapter markup into plain text, keeping paragraph breaks.
func HTMLToText(markup string) string {
	text := scriptMatcher.ReplaceAllString(markup, "")
	text = styleMatcher.ReplaceAllString(text, "")
	text = blockTagMatcher.ReplaceAllString(text, "\n")
	text = tagMatcher.ReplaceAllString(text, "")
	text = numericEntityMatcher.ReplaceAllString(text, "")
	text = namedEntities.Replace(text)
	text = strings.ReplaceAll(text, "&amp;", "&")
	return CollapseSpace(text)
}

// CollapseSpace squeezes runs of blanks and keeps at most one empty line.
func CollapseSpace(text string) string {
	text = spaceMatcher.ReplaceAllString(text, " ")
	text = lineEdgeMatcher.ReplaceAllString(text, "\n")
	text = blankLinesMatcher.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// StripControl removes control characters from metadata strings.
func StripControl(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s))
}

// Truncate cuts s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
