package v1

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/http/request"
	"github.com/Xunop/e-oasis-mcp/internal/http/response"
	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.library.ListLibrary(r.Context())
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, books)
}

// catalogEntry resolves the id route parameter against the catalog only, so
// that a route never opens an arbitrary file path.
func (h *Handler) catalogEntry(w http.ResponseWriter, r *http.Request) (*model.LibraryEntry, bool) {
	book, err := h.library.ResolveBook(r.Context(), request.RouteStringParam(r, "id"))
	if library.IsNotFound(err) {
		response.NotFound(w, r, err)
		return nil, false
	}
	if err != nil {
		response.ServerError(w, r, err)
		return nil, false
	}
	return book, true
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	if book, ok := h.catalogEntry(w, r); ok {
		response.OK(w, r, book)
	}
}

func (h *Handler) getCover(w http.ResponseWriter, r *http.Request) {
	book, ok := h.catalogEntry(w, r)
	if !ok {
		return
	}
	cover, err := h.library.Cover(r.Context(), book.ID)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	if cover == "" {
		log.Debug("Book has no cover", zap.String("book_id", book.ID))
		response.NotFound(w, r, errors.New("book has no cover"))
		return
	}
	mime, data, err := util.ParseDataURI(cover)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.Blob(w, r, mime, data)
}

func (h *Handler) exportAnnotations(w http.ResponseWriter, r *http.Request) {
	format := library.ExportFormat(request.QueryStringParam(r, "format", string(library.ExportMarkdown)))
	if format != library.ExportMarkdown && format != library.ExportJSON {
		response.BadRequest(w, r, errors.Errorf("unknown format %q", format))
		return
	}
	book, ok := h.catalogEntry(w, r)
	if !ok {
		return
	}
	out, err := h.library.Export(r.Context(), book.ID, format)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	contentType := "text/markdown; charset=utf-8"
	if format == library.ExportJSON {
		contentType = "application/json"
	}
	response.New(w, r).WithHeader("Content-Type", contentType).WithBody(out).Write()
}
