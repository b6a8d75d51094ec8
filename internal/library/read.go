package library

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// ChapterSlice is a window of a chapter's text. Offsets and lengths count
// characters, not bytes.
type ChapterSlice struct {
	BookID       string `json:"bookId"`
	ChapterIndex int    `json:"chapterIndex"`
	ChapterTitle string `json:"chapterTitle"`
	ChapterCount int    `json:"chapterCount"`
	Content      string `json:"content"`
	Offset       int    `json:"offset"`
	TotalLength  int    `json:"totalLength"`
	HasMore      bool   `json:"hasMore"`
	NextOffset   int    `json:"nextOffset,omitempty"`
}

func (s *Service) chapterText(doc *Document, i int) (string, error) {
	key := fmt.Sprintf("%s/%d", doc.ID(), i)
	return s.texts.GetOrPopulate(key, func() (string, error) {
		return doc.ChapterText(i)
	})
}

// ReadChapter returns the chapter text from offset. Without a limit the whole
// remainder is returned, unless the chapter is longer than the chunk
// threshold in which case it is served in chunk-size slices.
func (s *Service) ReadChapter(ctx context.Context, query string, index int, offset, limit *int) (*ChapterSlice, error) {
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return nil, err
	}
	count := doc.Structure.ChapterCount()
	if index < 0 || index >= count {
		return nil, chapterNotFound(index, count)
	}
	text, err := s.chapterText(doc, index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract chapter %d", index)
	}

	runes := []rune(text)
	total := len(runes)
	start := 0
	if offset != nil {
		start = min(max(*offset, 0), total)
	}
	size := total - start
	if limit != nil && *limit > 0 {
		size = *limit
	} else if total > s.cfg.ChunkThreshold {
		size = s.cfg.ChunkSize
	}
	end := min(start+size, total)

	slice := &ChapterSlice{
		BookID:       doc.ID(),
		ChapterIndex: index,
		ChapterTitle: doc.Structure.Chapters[index].Title,
		ChapterCount: count,
		Content:      string(runes[start:end]),
		Offset:       start,
		TotalLength:  total,
		HasMore:      end < total,
	}
	if slice.HasMore {
		slice.NextOffset = end
	}
	return slice, nil
}

type PageText struct {
	PageNumber int    `json:"pageNumber"`
	Text       string `json:"text"`
	Error      string `json:"error,omitempty"`
}

type PageRange struct {
	BookID     string     `json:"bookId"`
	Title      string     `json:"title"`
	StartPage  int        `json:"startPage"`
	Pages      []PageText `json:"pages"`
	TotalPages int        `json:"totalPages"`
}

// ReadPages returns up to count consecutive pages of a PDF starting at the
// 1-based page. count is capped by the per-read maximum and the last page.
func (s *Service) ReadPages(ctx context.Context, query string, page, count int) (*PageRange, error) {
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return nil, err
	}
	if !doc.IsPDF() {
		return nil, errors.New("read_page only applies to PDF documents, use read_chapter for EPUB")
	}
	total := doc.Structure.ChapterCount()
	if page < 1 || page > total {
		return nil, pageNotFound(page, total)
	}
	if count < 1 {
		count = 1
	}
	if s.cfg.MaxPagesPerRead > 0 {
		count = min(count, s.cfg.MaxPagesPerRead)
	}

	r := &PageRange{
		BookID:     doc.ID(),
		Title:      doc.Structure.Title,
		StartPage:  page,
		Pages:      []PageText{},
		TotalPages: total,
	}
	for n := page; n < page+count && n <= total; n++ {
		text, err := s.chapterText(doc, n-1)
		p := PageText{PageNumber: n, Text: text}
		if err != nil {
			p.Error = err.Error()
		}
		r.Pages = append(r.Pages, p)
	}
	return r, nil
}
