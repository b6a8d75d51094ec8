package epub

import (
	"fmt"
	"strings"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// Structure is the reconciled chapter list and sidebar TOC of a book.
type Structure struct {
	Mode     model.PaginationMode
	Chapters []model.Chapter
	TOC      []model.TOCEntry
}

// BuildStructure reconciles the spine and the table of contents. The result
// depends only on the package content, so chapter indexes are stable across
// reopens.
func (b *Book) BuildStructure() *Structure {
	return buildStructure(b.Flow(), b.Nav)
}

func buildStructure(flow []FlowItem, nav []NavEntry) *Structure {
	idx := newHrefIndex(flow)
	if useAnchorMode(flow, nav) {
		return anchorStructure(flow, nav, idx)
	}
	return flowStructure(flow, nav, idx)
}

// useAnchorMode is true when the TOC is finer than the spine: strictly more
// entries than flow documents and at least one in-document anchor.
func useAnchorMode(flow []FlowItem, nav []NavEntry) bool {
	if len(nav) <= len(flow) {
		return false
	}
	for _, e := range nav {
		if strings.Contains(e.Href, "#") {
			return true
		}
	}
	return false
}

func anchorStructure(flow []FlowItem, nav []NavEntry, idx *hrefIndex) *Structure {
	s := &Structure{Mode: model.PaginationAnchor}
	for _, e := range nav {
		i, ok := idx.lookup(e.Href)
		if !ok {
			continue
		}
		_, fragment := SplitHref(e.Href)
		n := len(s.Chapters)
		title := e.Title
		if title == "" {
			title = pageTitle(n)
		}
		s.Chapters = append(s.Chapters, model.Chapter{
			Index:  n,
			Title:  title,
			Href:   flow[i].Href,
			Anchor: fragment,
		})
		s.TOC = append(s.TOC, model.TOCEntry{Title: title, ChapterIndex: n, Level: e.Level})
	}
	return s
}

func flowStructure(flow []FlowItem, nav []NavEntry, idx *hrefIndex) *Structure {
	s := &Structure{Mode: model.PaginationFlow}

	firstTitle := make(map[int]string)
	for _, e := range nav {
		i, ok := idx.lookup(e.Href)
		if !ok {
			continue
		}
		if _, seen := firstTitle[i]; !seen && e.Title != "" {
			firstTitle[i] = e.Title
		}
		s.TOC = append(s.TOC, model.TOCEntry{Title: e.Title, ChapterIndex: i, Level: e.Level})
	}

	for i, item := range flow {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = firstTitle[i]
		}
		if title == "" {
			title = pageTitle(i)
		}
		s.Chapters = append(s.Chapters, model.Chapter{Index: i, Title: title, Href: item.Href})
	}

	for i := range s.TOC {
		if s.TOC[i].Title == "" {
			s.TOC[i].Title = s.Chapters[s.TOC[i].ChapterIndex].Title
		}
	}
	return s
}

func pageTitle(i int) string {
	return fmt.Sprintf("Page %d", i+1)
}
