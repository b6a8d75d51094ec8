package tool

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/model"
)

type addHighlightInput struct {
	Book         string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	ChapterIndex int    `json:"chapter_index" jsonschema:"0-based chapter index"`
	CFIRange     string `json:"cfi_range,omitempty" jsonschema:"EPUB CFI range of the selection"`
	PageNumber   int    `json:"page_number,omitempty" jsonschema:"1-based PDF page"`
	Text         string `json:"text" jsonschema:"highlighted passage"`
	Color        string `json:"color,omitempty" jsonschema:"yellow, green, blue or pink"`
}

type addNoteInput struct {
	Book         string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	ChapterIndex int    `json:"chapter_index" jsonschema:"0-based chapter index"`
	CFIRange     string `json:"cfi_range,omitempty" jsonschema:"EPUB CFI range of the selection"`
	PageNumber   int    `json:"page_number,omitempty" jsonschema:"1-based PDF page"`
	Text         string `json:"text" jsonschema:"note body"`
	Quote        string `json:"quote,omitempty" jsonschema:"passage the note refers to"`
}

type addBookmarkInput struct {
	Book         string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	ChapterIndex int    `json:"chapter_index" jsonschema:"0-based chapter index"`
	CFIRange     string `json:"cfi_range,omitempty" jsonschema:"EPUB CFI range of the selection"`
	PageNumber   int    `json:"page_number,omitempty" jsonschema:"1-based PDF page"`
	Title        string `json:"title,omitempty" jsonschema:"bookmark label, defaults to the chapter title"`
}

type listInput struct {
	Book  string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	Limit *int   `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type searchHighlightsInput struct {
	Query string `json:"query,omitempty" jsonschema:"case-insensitive text to look for"`
	Book  string `json:"book,omitempty" jsonschema:"restrict to one book; every book when empty"`
	Color string `json:"color,omitempty" jsonschema:"restrict to one color"`
	Limit *int   `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type searchNotesInput struct {
	Query string `json:"query,omitempty" jsonschema:"case-insensitive text to look for in notes and quotes"`
	Book  string `json:"book,omitempty" jsonschema:"restrict to one book; every book when empty"`
	Limit *int   `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type deleteInput struct {
	ID string `json:"id" jsonschema:"annotation id"`
}

type exportInput struct {
	Book   string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	Format string `json:"format,omitempty" jsonschema:"markdown or json, markdown by default"`
}

type saveSemanticIndexInput struct {
	Book      string `json:"book,omitempty" jsonschema:"book id, title, or path; defaults to the current book"`
	IndexData any    `json:"index_data" jsonschema:"analysis of the book, any JSON value"`
}

type deleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

func deleted(kind, id string, ok bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &library.NotFoundError{Kind: kind, Query: id, Hint: "List the annotations of the book to find its id."}
	}
	return &deleteOutput{Deleted: true, ID: id}, nil
}

func (s *Server) registerAnnotationTools() {
	addTool(s, "add_highlight", "Highlight a passage of a chapter.",
		func(ctx context.Context, in addHighlightInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.AddHighlight(ctx, query, &model.Highlight{
				ChapterIndex: in.ChapterIndex,
				Text:         in.Text,
				Color:        model.HighlightColor(in.Color),
				CFIRange:     in.CFIRange,
				PageNumber:   in.PageNumber,
			})
		})

	addTool(s, "list_highlights", "List the highlights of a book, newest first.",
		func(ctx context.Context, in listInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.SearchHighlights(ctx, query, "", "", in.Limit)
		})

	addTool(s, "search_highlights", "Search highlights by text and color, in one book or across the library.",
		func(ctx context.Context, in searchHighlightsInput) (any, error) {
			return s.library.SearchHighlights(ctx, in.Book, in.Query, model.HighlightColor(in.Color), in.Limit)
		})

	addTool(s, "delete_highlight", "Delete a highlight by id.",
		func(ctx context.Context, in deleteInput) (any, error) {
			ok, err := s.library.DeleteHighlight(ctx, in.ID)
			return deleted("highlight", in.ID, ok, err)
		})

	addTool(s, "add_note", "Attach a note to a chapter, optionally quoting a passage.",
		func(ctx context.Context, in addNoteInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.AddNote(ctx, query, &model.Note{
				ChapterIndex: in.ChapterIndex,
				Text:         in.Text,
				Quote:        in.Quote,
				CFIRange:     in.CFIRange,
				PageNumber:   in.PageNumber,
			})
		})

	addTool(s, "list_notes", "List the notes of a book, newest first.",
		func(ctx context.Context, in listInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.SearchNotes(ctx, query, "", in.Limit)
		})

	addTool(s, "search_notes", "Search notes and their quotes, in one book or across the library.",
		func(ctx context.Context, in searchNotesInput) (any, error) {
			return s.library.SearchNotes(ctx, in.Book, in.Query, in.Limit)
		})

	addTool(s, "delete_note", "Delete a note by id.",
		func(ctx context.Context, in deleteInput) (any, error) {
			ok, err := s.library.DeleteNote(ctx, in.ID)
			return deleted("note", in.ID, ok, err)
		})

	addTool(s, "add_bookmark", "Bookmark a chapter.",
		func(ctx context.Context, in addBookmarkInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.AddBookmark(ctx, query, &model.Bookmark{
				ChapterIndex: in.ChapterIndex,
				Title:        in.Title,
				CFIRange:     in.CFIRange,
				PageNumber:   in.PageNumber,
			})
		})

	addTool(s, "list_bookmarks", "List the bookmarks of a book, newest first.",
		func(ctx context.Context, in listInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			return s.library.ListBookmarks(ctx, query, in.Limit)
		})

	addTool(s, "delete_bookmark", "Delete a bookmark by id.",
		func(ctx context.Context, in deleteInput) (any, error) {
			ok, err := s.library.DeleteBookmark(ctx, in.ID)
			return deleted("bookmark", in.ID, ok, err)
		})

	addTool(s, "export_annotations", "Export the highlights, notes and bookmarks of a book as markdown or JSON.",
		func(ctx context.Context, in exportInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			format := library.ExportFormat(in.Format)
			if format == "" {
				format = library.ExportMarkdown
			}
			return s.library.Export(ctx, query, format)
		})

	addTool(s, "get_semantic_index", "Fetch the saved analysis of a book.",
		func(ctx context.Context, in bookInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			idx, err := s.library.GetSemanticIndex(ctx, query)
			if err != nil {
				return nil, err
			}
			if idx == nil {
				return "No semantic index saved for this book yet. Use save_semantic_index to store one.", nil
			}
			return idx, nil
		})

	addTool(s, "save_semantic_index", "Save an analysis of a book, replacing the previous one.",
		func(ctx context.Context, in saveSemanticIndexInput) (any, error) {
			query, err := s.bookQuery(in.Book)
			if err != nil {
				return nil, err
			}
			if in.IndexData == nil {
				return nil, errors.New("index_data is required")
			}
			data, err := json.Marshal(in.IndexData)
			if err != nil {
				return nil, errors.Wrap(err, "index_data is not valid JSON")
			}
			return s.library.SaveSemanticIndex(ctx, query, data)
		})
}
