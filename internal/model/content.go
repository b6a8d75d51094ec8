package model

import (
	"encoding/json"
	"time"
)

// IndexedContent is one chapter row of the full-text index. All rows of a
// book share the same ContentHash.
type IndexedContent struct {
	ID           int64     `json:"id"`
	BookID       string    `json:"bookId"`
	ChapterIndex int       `json:"chapterIndex"`
	ChapterTitle string    `json:"chapterTitle"`
	Content      string    `json:"content"`
	ContentHash  string    `json:"contentHash"`
	BookTitle    string    `json:"bookTitle"`
	Author       string    `json:"author"`
	IndexedAt    time.Time `json:"indexedAt"`
}

type FindContent struct {
	Query   string   `json:"query"`
	BookIDs []string `json:"book_ids"`
	Limit   *int     `json:"limit"`
}

// ContentSearchResult scores are normalized to [0,1] within one result set
// and are not comparable across queries.
type ContentSearchResult struct {
	BookID       string  `json:"bookId"`
	BookTitle    string  `json:"bookTitle"`
	Author       string  `json:"author"`
	ChapterIndex int     `json:"chapterIndex"`
	ChapterTitle string  `json:"chapterTitle"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
}

// SemanticIndex is an assistant-authored analysis of a book.
type SemanticIndex struct {
	ID        int64           `json:"id"`
	BookID    string          `json:"bookId"`
	IndexData json.RawMessage `json:"indexData"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ReadingPosition struct {
	BookID         string    `json:"bookId"`
	ChapterIndex   int       `json:"chapterIndex"`
	ScrollPosition float64   `json:"scrollPosition"`
	LastRead       time.Time `json:"lastRead"`
}

// Session is the persisted reading state, one position per book.
type Session struct {
	Positions map[string]*ReadingPosition `json:"positions"`
}

// IndexStatus summarizes the indexed rows of one book.
type IndexStatus struct {
	BookID        string    `json:"bookId"`
	Indexed       bool      `json:"indexed"`
	ChapterCount  int       `json:"chapterCount"`
	ContentHash   string    `json:"contentHash,omitempty"`
	IndexedAt     time.Time `json:"indexedAt,omitempty"`
	ChapterTitles []string  `json:"chapterTitles,omitempty"`
}
