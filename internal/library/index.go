package library

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/extract"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

type IndexResult struct {
	BookID      string               `json:"bookId"`
	Title       string               `json:"title"`
	ContentHash string               `json:"contentHash"`
	Indexed     int                  `json:"indexed"`
	Skipped     []extract.UnitResult `json:"skipped,omitempty"`
	// Unchanged is set when the stored index already matched the book.
	Unchanged bool `json:"unchanged,omitempty"`
}

// IndexBook extracts every chapter, strips shared boilerplate and replaces
// the full-text rows of the book. Nothing is written when the content hash
// matches the stored one, unless force is set.
func (s *Service) IndexBook(ctx context.Context, query string, force bool) (*IndexResult, error) {
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return nil, err
	}
	structure := doc.Structure
	titles := make([]string, len(structure.Chapters))
	for i, ch := range structure.Chapters {
		titles[i] = ch.Title
	}

	report := extract.Run(titles, func(i int) (string, error) {
		return s.chapterText(doc, i)
	})
	report.Dedupe(s.cfg.Dedup)
	for _, u := range report.Skipped() {
		log.Warn("Skipped chapter", zap.String("book_id", structure.BookID), zap.Int("chapter", u.Index), zap.String("reason", u.Reason))
	}

	result := &IndexResult{
		BookID:      structure.BookID,
		Title:       structure.Title,
		ContentHash: util.ContentHash(report.Texts()),
		Skipped:     report.Skipped(),
	}
	existing, indexed, err := s.store.GetContentHash(ctx, structure.BookID)
	if err != nil {
		return nil, err
	}
	if indexed && existing == result.ContentHash && !force {
		result.Unchanged = true
		status, err := s.store.GetIndexStatus(ctx, structure.BookID)
		if err != nil {
			return nil, err
		}
		result.Indexed = status.ChapterCount
		return result, nil
	}

	rows := []*model.IndexedContent{}
	for _, u := range report.Extracted() {
		if u.Text == "" {
			continue
		}
		rows = append(rows, &model.IndexedContent{
			BookID:       structure.BookID,
			ChapterIndex: u.Index,
			ChapterTitle: u.Title,
			Content:      u.Text,
			ContentHash:  result.ContentHash,
			BookTitle:    structure.Title,
			Author:       structure.Author,
		})
	}
	if err := s.store.ReplaceBookContent(ctx, structure.BookID, rows); err != nil {
		return nil, errors.Wrap(err, "failed to index book")
	}
	result.Indexed = len(rows)
	log.Info("Indexed book", zap.String("book_id", structure.BookID), zap.Int("chapters", len(rows)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *Service) IndexStatus(ctx context.Context, query string) (*model.IndexStatus, error) {
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.GetIndexStatus(ctx, book.ID)
}

// SearchContent runs a full-text query, optionally limited to some books
// given by id or title.
func (s *Service) SearchContent(ctx context.Context, query string, books []string, limit *int) ([]*model.ContentSearchResult, error) {
	find := &model.FindContent{Query: query, Limit: limit}
	for _, q := range books {
		book, err := s.ResolveBook(ctx, q)
		if err != nil {
			return nil, err
		}
		find.BookIDs = append(find.BookIDs, book.ID)
	}
	return s.store.SearchContent(ctx, find)
}
