package library

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
)

// validatePosition resets a saved position that points past the chapters of
// the book, for instance after the file was replaced by a shorter edition,
// and persists the reset.
func (s *Service) validatePosition(structure *model.BookStructure) (*model.ReadingPosition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession()
	if err != nil {
		return nil, false, err
	}
	pos, ok := session.Positions[structure.BookID]
	if !ok {
		return nil, false, nil
	}
	if pos.ChapterIndex >= 0 && pos.ChapterIndex < structure.ChapterCount() {
		return pos, false, nil
	}

	log.Info("Resetting out of range reading position",
		zap.String("book_id", structure.BookID),
		zap.Int("chapter", pos.ChapterIndex),
		zap.Int("chapters", structure.ChapterCount()))
	pos.ChapterIndex = 0
	pos.ScrollPosition = 0
	if err := storage.SaveJSON(s.session, session); err != nil {
		return nil, false, errors.Wrap(err, "failed to save session")
	}
	return pos, true, nil
}

// SetPosition records where the reader is in a book. scroll is clamped to [0,1].
func (s *Service) SetPosition(ctx context.Context, query string, chapterIndex int, scroll float64) (*model.ReadingPosition, error) {
	structure, err := s.TableOfContents(ctx, query)
	if err != nil {
		return nil, err
	}
	if chapterIndex < 0 || chapterIndex >= structure.ChapterCount() {
		return nil, chapterNotFound(chapterIndex, structure.ChapterCount())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession()
	if err != nil {
		return nil, err
	}
	pos := &model.ReadingPosition{
		BookID:         structure.BookID,
		ChapterIndex:   chapterIndex,
		ScrollPosition: min(max(scroll, 0), 1),
		LastRead:       s.now(),
	}
	session.Positions[structure.BookID] = pos
	if err := storage.SaveJSON(s.session, session); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}
	return pos, nil
}

// GetPosition returns nil when no position was saved for the book.
func (s *Service) GetPosition(ctx context.Context, query string) (*model.ReadingPosition, error) {
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.loadSession()
	if err != nil {
		return nil, err
	}
	return session.Positions[book.ID], nil
}
