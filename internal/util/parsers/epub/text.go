package epub

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

var (
	bodyOpenMatcher  = regexp.MustCompile(`(?is)<body\b[^>]*>`)
	bodyCloseMatcher = regexp.MustCompile(`(?i)</body\s*>`)
)

// ChapterText returns the plain text of chapters[i].
func (b *Book) ChapterText(chapters []model.Chapter, i int) (string, error) {
	markup, err := b.ChapterMarkup(chapters, i)
	if err != nil {
		return "", err
	}
	return util.HTMLToText(markup), nil
}

// ChapterMarkup returns the body markup of chapters[i]. In anchor mode the
// document is cut from the chapter's anchor up to the next chapter's anchor
// when both live in the same document.
func (b *Book) ChapterMarkup(chapters []model.Chapter, i int) (string, error) {
	if i < 0 || i >= len(chapters) {
		return "", errors.Errorf("chapter %d out of range [0,%d)", i, len(chapters))
	}
	ch := chapters[i]
	data, err := b.readBytes(ch.Href)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read chapter %d", i)
	}
	markup := body(string(data))

	start := 0
	if ch.Anchor != "" {
		if pos := anchorPosition(markup, ch.Anchor); pos >= 0 {
			start = pos
		}
	}
	end := len(markup)
	if i+1 < len(chapters) {
		next := chapters[i+1]
		if next.Href == ch.Href && next.Anchor != "" {
			if pos := anchorPosition(markup, next.Anchor); pos > start {
				end = pos
			}
		}
	}
	return markup[start:end], nil
}

func body(markup string) string {
	if loc := bodyOpenMatcher.FindStringIndex(markup); loc != nil {
		markup = markup[loc[1]:]
	}
	if loc := bodyCloseMatcher.FindStringIndex(markup); loc != nil {
		markup = markup[:loc[0]]
	}
	return markup
}

// anchorPosition finds the start of the tag carrying id (or name) anchor.
func anchorPosition(markup, anchor string) int {
	m := regexp.MustCompile(`(?i)<[^<>]*\s(?:id|name)\s*=\s*["']` + regexp.QuoteMeta(anchor) + `["']`)
	if loc := m.FindStringIndex(markup); loc != nil {
		return loc[0]
	}
	return -1
}
