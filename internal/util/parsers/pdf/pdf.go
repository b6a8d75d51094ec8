package pdf // import "github.com/Xunop/e-oasis-mcp/internal/util/parsers/pdf"

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ledong "github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

// Document is an opened PDF. The underlying reader panics on malformed
// input; every exported method recovers and reports an error instead, and
// nothing is ever written to stdout.
type Document struct {
	Title  string
	Author string

	mu       sync.Mutex
	reader   *ledong.Reader
	numPages int
}

// Open parses a PDF held in memory. filename only feeds the title fallback.
func Open(data []byte, filename string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, errors.Errorf("pdf: malformed document: %v", r)
		}
	}()

	reader, err := ledong.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "pdf: failed to open")
	}
	doc = &Document{reader: reader, numPages: reader.NumPage()}

	info := reader.Trailer().Key("Info")
	doc.Title = util.StripControl(info.Key("Title").Text())
	doc.Author = util.StripControl(info.Key("Author").Text())
	if doc.Title == "" {
		base := filepath.Base(filename)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if doc.Author == "" {
		doc.Author = model.UnknownAuthor
	}
	return doc, nil
}

func (d *Document) NumPages() int {
	return d.numPages
}

// PageText extracts the text of the 1-based page n.
func (d *Document) PageText(n int) (text string, err error) {
	if n < 1 || n > d.numPages {
		return "", errors.Errorf("pdf: page %d out of range [1,%d]", n, d.numPages)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errors.Errorf("pdf: failed to read page %d: %v", n, r)
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return "", errors.Errorf("pdf: page %d not found", n)
	}
	content := p.Content()
	runs := make([]Run, 0, len(content.Text))
	for _, t := range content.Text {
		runs = append(runs, Run{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return ReconstructLines(runs, LineThreshold), nil
}

// Chapters lists one chapter per page.
func (d *Document) Chapters() []model.Chapter {
	chapters := make([]model.Chapter, d.numPages)
	for i := range chapters {
		chapters[i] = model.Chapter{
			Index:      i,
			Title:      fmt.Sprintf("Page %d", i+1),
			PageNumber: i + 1,
		}
	}
	return chapters
}
