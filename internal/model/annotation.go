package model

import "time"

type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
)

func (c HighlightColor) Valid() bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink:
		return true
	}
	return false
}

// Annotations are immutable once created; they can only be deleted.

type Highlight struct {
	ID           string         `json:"id"`
	BookID       string         `json:"bookId"`
	ChapterIndex int            `json:"chapterIndex"`
	Text         string         `json:"text"`
	Color        HighlightColor `json:"color"`
	CFIRange     string         `json:"cfiRange,omitempty"`
	PageNumber   int            `json:"pageNumber,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type Note struct {
	ID           string    `json:"id"`
	BookID       string    `json:"bookId"`
	ChapterIndex int       `json:"chapterIndex"`
	Text         string    `json:"text"`
	Quote        string    `json:"quote,omitempty"`
	CFIRange     string    `json:"cfiRange,omitempty"`
	PageNumber   int       `json:"pageNumber,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Bookmark struct {
	ID           string    `json:"id"`
	BookID       string    `json:"bookId"`
	ChapterIndex int       `json:"chapterIndex"`
	Title        string    `json:"title,omitempty"`
	CFIRange     string    `json:"cfiRange,omitempty"`
	PageNumber   int       `json:"pageNumber,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type FindHighlight struct {
	BookID *string `json:"book_id"`
	// Text is a case-insensitive substring match.
	Text  *string         `json:"text"`
	Color *HighlightColor `json:"color"`
	Limit *int            `json:"limit"`
}

type FindNote struct {
	BookID *string `json:"book_id"`
	// Text matches either the note text or its quote.
	Text  *string `json:"text"`
	Limit *int    `json:"limit"`
}

type FindBookmark struct {
	BookID *string `json:"book_id"`
	Limit  *int    `json:"limit"`
}
