package validator // import "github.com/Xunop/e-oasis-mcp/internal/validator"

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

const (
	maxAnnotationText = 20000
	maxTitleLength    = 500
)

// ValidateHighlight checks a highlight of a book with chapterCount chapters.
// An empty color is accepted and defaults to yellow on save.
func ValidateHighlight(h *model.Highlight, chapterCount int) error {
	if h == nil {
		return errors.New("highlight is nil")
	}
	if strings.TrimSpace(h.Text) == "" {
		return errors.New("highlight text is empty")
	}
	if utf8.RuneCountInString(h.Text) > maxAnnotationText {
		return errors.New("highlight text is too long")
	}
	if h.Color != "" && !h.Color.Valid() {
		return errors.Errorf("unknown highlight color %q, use yellow, green, blue or pink", h.Color)
	}
	return validateLocation(h.ChapterIndex, h.PageNumber, chapterCount)
}

func ValidateNote(n *model.Note, chapterCount int) error {
	if n == nil {
		return errors.New("note is nil")
	}
	if strings.TrimSpace(n.Text) == "" {
		return errors.New("note text is empty")
	}
	if utf8.RuneCountInString(n.Text) > maxAnnotationText || utf8.RuneCountInString(n.Quote) > maxAnnotationText {
		return errors.New("note is too long")
	}
	return validateLocation(n.ChapterIndex, n.PageNumber, chapterCount)
}

func ValidateBookmark(b *model.Bookmark, chapterCount int) error {
	if b == nil {
		return errors.New("bookmark is nil")
	}
	if utf8.RuneCountInString(b.Title) > maxTitleLength {
		return errors.New("bookmark title is too long")
	}
	return validateLocation(b.ChapterIndex, b.PageNumber, chapterCount)
}

func validateLocation(chapterIndex, pageNumber, chapterCount int) error {
	if chapterIndex < 0 || (chapterCount > 0 && chapterIndex >= chapterCount) {
		return errors.Errorf("chapter index %d out of range [0,%d)", chapterIndex, chapterCount)
	}
	if pageNumber < 0 {
		return errors.New("page number must be positive")
	}
	return nil
}
