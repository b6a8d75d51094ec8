package model // import "github.com/Xunop/e-oasis-mcp/internal/model"

import "time"

type BookFormat string

const (
	FormatEPUB BookFormat = "epub"
	FormatPDF  BookFormat = "pdf"
)

type PaginationMode string

const (
	// PaginationFlow maps one spine document to one chapter.
	PaginationFlow PaginationMode = "flow"
	// PaginationAnchor maps one TOC entry to one chapter.
	PaginationAnchor PaginationMode = "anchor"
	// PaginationPage maps one PDF page to one chapter.
	PaginationPage PaginationMode = "page"
)

const UnknownAuthor = "Unknown Author"

// LibraryEntry is one file of the library catalog.
type LibraryEntry struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	Format       BookFormat `json:"format"`
	CoverURL     string     `json:"coverUrl,omitempty"`
	Description  string     `json:"description,omitempty"`
	ChapterCount int        `json:"chapterCount,omitempty"`
	Size         int64      `json:"size"`
	ModTime      time.Time  `json:"modTime"`
	AddedAt      time.Time  `json:"addedAt"`
	LastRead     *time.Time `json:"lastRead,omitempty"`
}

type Catalog struct {
	LibraryPath string          `json:"libraryPath"`
	Books       []*LibraryEntry `json:"books"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Chapter is the unit of navigation and annotation anchoring.
// Index is stable across reopens of the same file.
type Chapter struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Href       string `json:"href,omitempty"`
	Anchor     string `json:"anchor,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
}

type TOCEntry struct {
	Title        string `json:"title"`
	ChapterIndex int    `json:"chapterIndex"`
	Level        int    `json:"level"`
	PageNumber   int    `json:"pageNumber,omitempty"`
}

// BookStructure is the normalized document model shared by EPUB and PDF.
type BookStructure struct {
	BookID         string         `json:"bookId"`
	Format         BookFormat     `json:"format"`
	Title          string         `json:"title"`
	Author         string         `json:"author"`
	Description    string         `json:"description,omitempty"`
	Cover          string         `json:"cover,omitempty"`
	PaginationMode PaginationMode `json:"paginationMode"`
	Chapters       []Chapter      `json:"chapters"`
	TOC            []TOCEntry     `json:"toc"`
}

func (b *BookStructure) ChapterCount() int {
	return len(b.Chapters)
}
