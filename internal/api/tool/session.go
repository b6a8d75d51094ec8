package tool

import (
	"sync"
	"time"
)

// Session is the reading context shared by every tool call of one server:
// the book that was last loaded and the article that was last opened. There
// is one context per process, so two clients of the same server share it.
type Session struct {
	mu sync.RWMutex

	bookID    string
	bookTitle string
	bookPath  string
	articleID int64
	updatedAt time.Time
}

type CurrentContext struct {
	BookID    string    `json:"bookId,omitempty"`
	BookTitle string    `json:"bookTitle,omitempty"`
	BookPath  string    `json:"bookPath,omitempty"`
	ArticleID int64     `json:"articleId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func (s *Session) SetBook(id, title, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookID, s.bookTitle, s.bookPath = id, title, path
	s.updatedAt = time.Now()
}

func (s *Session) SetArticle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articleID = id
	s.updatedAt = time.Now()
}

// Book returns the id of the current book, empty when none was loaded.
func (s *Session) Book() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookID
}

func (s *Session) Article() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.articleID
}

func (s *Session) Current() CurrentContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CurrentContext{
		BookID:    s.bookID,
		BookTitle: s.bookTitle,
		BookPath:  s.bookPath,
		ArticleID: s.articleID,
		UpdatedAt: s.updatedAt,
	}
}
