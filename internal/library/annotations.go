package library

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/validator"
)

const DefaultAnnotationLimit = 50

// bookFor resolves query to the structure annotations are checked against.
func (s *Service) bookFor(ctx context.Context, query string) (*model.BookStructure, error) {
	return s.TableOfContents(ctx, query)
}

// bookFilter turns an optional book query into a book id filter.
func (s *Service) bookFilter(ctx context.Context, query string) (*string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return &book.ID, nil
}

func limitOrDefault(limit *int) *int {
	if limit == nil || *limit <= 0 {
		n := DefaultAnnotationLimit
		return &n
	}
	return limit
}

func (s *Service) AddHighlight(ctx context.Context, query string, h *model.Highlight) (*model.Highlight, error) {
	structure, err := s.bookFor(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateHighlight(h, structure.ChapterCount()); err != nil {
		return nil, err
	}
	h.BookID = structure.BookID
	return s.store.CreateHighlight(ctx, h)
}

// SearchHighlights lists highlights, newest first. Every filter is optional.
func (s *Service) SearchHighlights(ctx context.Context, query, text string, color model.HighlightColor, limit *int) ([]*model.Highlight, error) {
	bookID, err := s.bookFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	find := &model.FindHighlight{BookID: bookID, Limit: limitOrDefault(limit)}
	if text != "" {
		find.Text = &text
	}
	if color != "" {
		if !color.Valid() {
			return nil, errors.Errorf("unknown highlight color %q", color)
		}
		find.Color = &color
	}
	return s.store.ListHighlights(ctx, find)
}

func (s *Service) DeleteHighlight(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteHighlight(ctx, id)
}

func (s *Service) AddNote(ctx context.Context, query string, n *model.Note) (*model.Note, error) {
	structure, err := s.bookFor(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateNote(n, structure.ChapterCount()); err != nil {
		return nil, err
	}
	n.BookID = structure.BookID
	return s.store.CreateNote(ctx, n)
}

func (s *Service) SearchNotes(ctx context.Context, query, text string, limit *int) ([]*model.Note, error) {
	bookID, err := s.bookFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	find := &model.FindNote{BookID: bookID, Limit: limitOrDefault(limit)}
	if text != "" {
		find.Text = &text
	}
	return s.store.ListNotes(ctx, find)
}

func (s *Service) DeleteNote(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteNote(ctx, id)
}

func (s *Service) AddBookmark(ctx context.Context, query string, b *model.Bookmark) (*model.Bookmark, error) {
	structure, err := s.bookFor(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateBookmark(b, structure.ChapterCount()); err != nil {
		return nil, err
	}
	b.BookID = structure.BookID
	if b.Title == "" && b.ChapterIndex < structure.ChapterCount() {
		b.Title = structure.Chapters[b.ChapterIndex].Title
	}
	return s.store.CreateBookmark(ctx, b)
}

func (s *Service) ListBookmarks(ctx context.Context, query string, limit *int) ([]*model.Bookmark, error) {
	bookID, err := s.bookFilter(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.ListBookmarks(ctx, &model.FindBookmark{BookID: bookID, Limit: limitOrDefault(limit)})
}

func (s *Service) DeleteBookmark(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteBookmark(ctx, id)
}

type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
)

// Annotations is every annotation of one book.
type Annotations struct {
	Book       *model.LibraryEntry `json:"book"`
	Highlights []*model.Highlight  `json:"highlights"`
	Notes      []*model.Note       `json:"notes"`
	Bookmarks  []*model.Bookmark   `json:"bookmarks"`
}

func (s *Service) Annotations(ctx context.Context, query string) (*Annotations, error) {
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	a := &Annotations{Book: book}
	if a.Highlights, err = s.store.ListHighlights(ctx, &model.FindHighlight{BookID: &book.ID}); err != nil {
		return nil, err
	}
	if a.Notes, err = s.store.ListNotes(ctx, &model.FindNote{BookID: &book.ID}); err != nil {
		return nil, err
	}
	if a.Bookmarks, err = s.store.ListBookmarks(ctx, &model.FindBookmark{BookID: &book.ID}); err != nil {
		return nil, err
	}
	return a, nil
}

// Export renders the annotations of a book as markdown or JSON.
func (s *Service) Export(ctx context.Context, query string, format ExportFormat) (string, error) {
	a, err := s.Annotations(ctx, query)
	if err != nil {
		return "", err
	}
	switch format {
	case ExportJSON:
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "failed to encode annotations")
		}
		return string(data), nil
	case ExportMarkdown, "":
		titles := map[int]string{}
		if structure, err := s.TableOfContents(ctx, a.Book.ID); err == nil {
			for _, ch := range structure.Chapters {
				titles[ch.Index] = ch.Title
			}
		}
		return renderMarkdown(a, titles), nil
	}
	return "", errors.Errorf("unknown export format %q, use markdown or json", format)
}

func renderMarkdown(a *Annotations, titles map[int]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n*%s*\n", a.Book.Title, a.Book.Author)

	chapterHeading := func(i int) string {
		if t := titles[i]; t != "" {
			return fmt.Sprintf("### %s\n\n", t)
		}
		return fmt.Sprintf("### Chapter %d\n\n", i+1)
	}

	if len(a.Highlights) > 0 {
		sb.WriteString("\n## Highlights\n\n")
		for _, group := range groupByChapter(len(a.Highlights), func(i int) int { return a.Highlights[i].ChapterIndex }) {
			sb.WriteString(chapterHeading(a.Highlights[group[0]].ChapterIndex))
			for _, i := range group {
				h := a.Highlights[i]
				fmt.Fprintf(&sb, "> %s\n\n_%s, %s_\n\n", quoteLines(h.Text), h.Color, h.CreatedAt.Format("2006-01-02"))
			}
		}
	}
	if len(a.Notes) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, group := range groupByChapter(len(a.Notes), func(i int) int { return a.Notes[i].ChapterIndex }) {
			sb.WriteString(chapterHeading(a.Notes[group[0]].ChapterIndex))
			for _, i := range group {
				n := a.Notes[i]
				if n.Quote != "" {
					fmt.Fprintf(&sb, "> %s\n\n", quoteLines(n.Quote))
				}
				fmt.Fprintf(&sb, "%s\n\n", n.Text)
			}
		}
	}
	if len(a.Bookmarks) > 0 {
		sb.WriteString("\n## Bookmarks\n\n")
		for _, b := range a.Bookmarks {
			title := b.Title
			if title == "" {
				title = titles[b.ChapterIndex]
			}
			fmt.Fprintf(&sb, "- %s (chapter %d)\n", title, b.ChapterIndex+1)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// groupByChapter groups item positions by chapter, chapters in reading
// order and items keeping their incoming order.
func groupByChapter(n int, chapterOf func(i int) int) [][]int {
	groups := map[int][]int{}
	for i := 0; i < n; i++ {
		groups[chapterOf(i)] = append(groups[chapterOf(i)], i)
	}
	chapters := make([]int, 0, len(groups))
	for ch := range groups {
		chapters = append(chapters, ch)
	}
	sort.Ints(chapters)
	out := make([][]int, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, groups[ch])
	}
	return out
}

func quoteLines(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}
