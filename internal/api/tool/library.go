package tool

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

type scanLibraryInput struct {
	Directory string `json:"directory,omitempty" jsonschema:"directory to scan, defaults to the configured library path"`
}

type bookInput struct {
	Book string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
}

type readChapterInput struct {
	Book         string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	ChapterIndex *int   `json:"chapter_index,omitempty" jsonschema:"0-based chapter index; defaults to the saved reading position"`
	Offset       *int   `json:"offset,omitempty" jsonschema:"character offset to start from"`
	Limit        *int   `json:"limit,omitempty" jsonschema:"maximum number of characters to return"`
}

type readPageInput struct {
	Book  string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	Page  int    `json:"page" jsonschema:"1-based page number"`
	Count int    `json:"count,omitempty" jsonschema:"number of pages, at most 10"`
}

type setPositionInput struct {
	Book           string  `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	ChapterIndex   int     `json:"chapter_index" jsonschema:"0-based chapter index"`
	ScrollPosition float64 `json:"scroll_position,omitempty" jsonschema:"position within the chapter between 0 and 1"`
}

type indexBookInput struct {
	Book  string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	Force bool   `json:"force,omitempty" jsonschema:"re-index even when the content did not change"`
}

type searchContentInput struct {
	Query string   `json:"query" jsonschema:"words to search for; every word must match"`
	Books []string `json:"books,omitempty" jsonschema:"restrict the search to these books"`
	Limit *int     `json:"limit,omitempty" jsonschema:"maximum number of results, 20 by default"`
}

type loadBookOutput struct {
	Book           *model.LibraryEntry    `json:"book"`
	PaginationMode model.PaginationMode   `json:"paginationMode"`
	ChapterCount   int                    `json:"chapterCount"`
	HasCover       bool                   `json:"hasCover"`
	TOC            []model.TOCEntry       `json:"toc"`
	Position       *model.ReadingPosition `json:"position,omitempty"`
	PositionReset  bool                   `json:"positionReset,omitempty"`
}

type tocOutput struct {
	BookID         string               `json:"bookId"`
	Title          string               `json:"title"`
	PaginationMode model.PaginationMode `json:"paginationMode"`
	Chapters       []model.Chapter      `json:"chapters"`
	TOC            []model.TOCEntry     `json:"toc"`
}

func (s *Server) registerLibraryTools() {
	addTool(s, "scan_library", "Scan a directory recursively for EPUB and PDF files and update the library catalog.",
		func(ctx context.Context, in scanLibraryInput) (any, error) {
			dir := in.Directory
			if dir == "" {
				dir = s.libraryPath
			}
			if dir == "" {
				return nil, errors.New("no directory given and no library_path configured")
			}
			res, err := s.library.Scan(ctx, dir)
			if err != nil {
				return nil, err
			}
			return res, nil
		})

	addTool(s, "list_library", "List the books of the library catalog.",
		func(ctx context.Context, _ noInput) (any, error) {
			return s.library.ListLibrary(ctx)
		})

	addTool(s, "load_book", "Open a book by id, title, or file path and make it the current book.",
		func(ctx context.Context, in bookInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			res, err := s.library.LoadBook(ctx, query)
			if err != nil {
				return nil, err
			}
			s.session.SetBook(res.Book.ID, res.Book.Title, res.Book.Path)
			return &loadBookOutput{
				Book:           res.Book,
				PaginationMode: res.Structure.PaginationMode,
				ChapterCount:   res.Structure.ChapterCount(),
				HasCover:       res.Structure.Cover != "",
				TOC:            res.Structure.TOC,
				Position:       res.Position,
				PositionReset:  res.PositionReset,
			}, nil
		})

	addTool(s, "get_table_of_contents", "List the chapters and the table of contents of a book.",
		func(ctx context.Context, in bookInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			structure, err := s.library.TableOfContents(ctx, query)
			if err != nil {
				return nil, err
			}
			return &tocOutput{
				BookID:         structure.BookID,
				Title:          structure.Title,
				PaginationMode: structure.PaginationMode,
				Chapters:       structure.Chapters,
				TOC:            structure.TOC,
			}, nil
		})

	addTool(s, "read_chapter", "Read the text of a chapter. Long chapters are returned in slices; pass nextOffset as offset to continue.",
		func(ctx context.Context, in readChapterInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			index := 0
			if in.ChapterIndex != nil {
				index = *in.ChapterIndex
			} else if pos, err := s.library.GetPosition(ctx, query); err == nil && pos != nil {
				index = pos.ChapterIndex
			}
			return s.library.ReadChapter(ctx, query, index, in.Offset, in.Limit)
		})

	addTool(s, "read_page", "Read consecutive pages of a PDF.",
		func(ctx context.Context, in readPageInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			count := in.Count
			if count <= 0 {
				count = 1
			}
			return s.library.ReadPages(ctx, query, in.Page, count)
		})

	addTool(s, "set_reading_position", "Save the reading position within a book.",
		func(ctx context.Context, in setPositionInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.SetPosition(ctx, query, in.ChapterIndex, in.ScrollPosition)
		})

	addTool(s, "index_book", "Index the text of a book for full-text search. Unchanged books are skipped unless forced.",
		func(ctx context.Context, in indexBookInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.IndexBook(ctx, query, in.Force)
		})

	addTool(s, "get_index_status", "Show whether a book is indexed and which chapters the index holds.",
		func(ctx context.Context, in bookInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.IndexStatus(ctx, query)
		})

	addTool(s, "search_content", "Full-text search over the indexed books, best matches first.",
		func(ctx context.Context, in searchContentInput) (any, error) {
			results, err := s.library.SearchContent(ctx, in.Query, in.Books, in.Limit)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return "No matches. Books must be indexed with index_book before they can be searched.", nil
			}
			return results, nil
		})
}
