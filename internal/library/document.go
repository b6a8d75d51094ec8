package library

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
	"github.com/Xunop/e-oasis-mcp/internal/util/parsers/epub"
	"github.com/Xunop/e-oasis-mcp/internal/util/parsers/pdf"
)

// Document is an opened book with its normalized structure. Exactly one of
// the format handles is set.
type Document struct {
	Path      string
	Structure *model.BookStructure

	epub *epub.Book
	pdf  *pdf.Document
}

func FormatOf(path string) (model.BookFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return model.FormatEPUB, true
	case ".pdf":
		return model.FormatPDF, true
	}
	return "", false
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OpenDocument parses the file at path. A missing cover is not an error.
func OpenDocument(path string, webpThreshold int) (*Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	doc := &Document{
		Path: path,
		Structure: &model.BookStructure{
			BookID: util.BookID(data),
			Format: format,
		},
	}
	switch format {
	case model.FormatEPUB:
		err = doc.openEpub(data, webpThreshold)
	case model.FormatPDF:
		err = doc.openPdf(data)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) openEpub(data []byte, webpThreshold int) error {
	book, err := epub.OpenBytes(data)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", d.Path)
	}
	d.epub = book

	s := d.Structure
	s.Title = util.StripControl(book.GetTitle())
	if s.Title == "" {
		s.Title = titleFromFilename(d.Path)
	}
	s.Author = util.StripControl(book.GetAuthor())
	if s.Author == "" {
		s.Author = model.UnknownAuthor
	}
	s.Description = book.GetDescription()

	structure := book.BuildStructure()
	s.PaginationMode = structure.Mode
	s.Chapters = structure.Chapters
	s.TOC = structure.TOC

	cover, err := book.Cover(webpThreshold)
	if err != nil && !errors.Is(err, epub.ErrNoCover) {
		log.Warn("Failed to read cover", zap.String("path", d.Path), zap.Error(err))
	}
	s.Cover = cover
	return nil
}

func (d *Document) openPdf(data []byte) error {
	doc, err := pdf.Open(data, d.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", d.Path)
	}
	d.pdf = doc

	s := d.Structure
	s.Title = doc.Title
	s.Author = doc.Author
	s.PaginationMode = model.PaginationPage
	s.Chapters = doc.Chapters()
	s.TOC = doc.Outline()
	return nil
}

func (d *Document) ID() string {
	return d.Structure.BookID
}

// ChapterText extracts the plain text of chapter i, a page for PDFs.
func (d *Document) ChapterText(i int) (string, error) {
	if i < 0 || i >= d.Structure.ChapterCount() {
		return "", chapterNotFound(i, d.Structure.ChapterCount())
	}
	if d.pdf != nil {
		return d.pdf.PageText(i + 1)
	}
	return d.epub.ChapterText(d.Structure.Chapters, i)
}

func (d *Document) IsPDF() bool {
	return d.pdf != nil
}
