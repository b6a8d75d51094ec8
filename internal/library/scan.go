package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
	"github.com/Xunop/e-oasis-mcp/internal/util"
	"github.com/Xunop/e-oasis-mcp/internal/util/parsers/epub"
	"github.com/Xunop/e-oasis-mcp/internal/util/parsers/pdf"
)

// ScanResult counts what a scan changed in the catalog.
type ScanResult struct {
	Books     []*model.LibraryEntry `json:"books"`
	Added     int                   `json:"added"`
	Updated   int                   `json:"updated"`
	Removed   int                   `json:"removed"`
	Unchanged int                   `json:"unchanged"`
}

// Scan walks dir recursively and reconciles the catalog with the EPUB and
// PDF files found. Files whose size and modification time did not change
// are not read again, and the catalog is only rewritten when something
// changed, so scanning an unchanged directory leaves it byte for byte.
func (s *Service) Scan(_ context.Context, dir string) (*ScanResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid library path %s", dir)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, errors.Wrapf(err, "unable to access library %s", root)
	} else if !info.IsDir() {
		return nil, errors.Errorf("library path %s is not a directory", root)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	known := make(map[string]*model.LibraryEntry, len(catalog.Books))
	for _, b := range catalog.Books {
		known[b.Path] = b
	}

	result := &ScanResult{}
	books := []*model.LibraryEntry{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("Failed to walk library entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		format, ok := FormatOf(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Warn("Failed to stat book", zap.String("path", path), zap.Error(err))
			return nil
		}

		prev := known[path]
		if prev != nil && prev.Size == info.Size() && prev.ModTime.Equal(info.ModTime()) {
			books = append(books, prev)
			result.Unchanged++
			return nil
		}
		entry, err := s.scanFile(path, format, info)
		if err != nil {
			log.Warn("Skipping unreadable book", zap.String("path", path), zap.Error(err))
			return nil
		}
		if prev != nil {
			entry.AddedAt = prev.AddedAt
			entry.LastRead = prev.LastRead
			result.Updated++
		} else {
			result.Added++
		}
		books = append(books, entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	slices.SortFunc(books, func(a, b *model.LibraryEntry) int {
		return strings.Compare(a.Path, b.Path)
	})
	result.Removed = len(catalog.Books) - result.Unchanged - result.Updated
	result.Books = books

	if result.Added+result.Updated+result.Removed > 0 || catalog.LibraryPath != root {
		catalog.LibraryPath = root
		catalog.Books = books
		catalog.UpdatedAt = s.now()
		if err := storage.SaveJSON(s.catalog, catalog); err != nil {
			return nil, errors.Wrap(err, "failed to save catalog")
		}
	}
	log.Info("Scanned library",
		zap.String("path", root),
		zap.Int("books", len(books)),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("removed", result.Removed))
	return result, nil
}

// scanFile reads the lightweight metadata of one book.
func (s *Service) scanFile(path string, format model.BookFormat, info fs.FileInfo) (*model.LibraryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	entry := &model.LibraryEntry{
		ID:      util.BookID(data),
		Path:    path,
		Format:  format,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		AddedAt: s.now(),
	}

	switch format {
	case model.FormatEPUB:
		if book, err := epub.OpenBytes(data); err != nil {
			log.Warn("Failed to read epub metadata", zap.String("path", path), zap.Error(err))
		} else {
			entry.Title = util.StripControl(book.GetTitle())
			entry.Author = util.StripControl(book.GetAuthor())
			entry.Description = util.Truncate(book.GetDescription(), 500)
			entry.ChapterCount = len(book.Flow())
		}
	case model.FormatPDF:
		if doc, err := pdf.Open(data, path); err != nil {
			log.Warn("Failed to read pdf metadata", zap.String("path", path), zap.Error(err))
		} else {
			entry.Title = doc.Title
			entry.Author = doc.Author
			entry.ChapterCount = doc.NumPages()
		}
	}
	if entry.Title == "" {
		entry.Title = titleFromFilename(path)
	}
	if entry.Author == "" {
		entry.Author = model.UnknownAuthor
	}
	log.Debug("Cataloged book", zap.String("path", path), zap.String("size", humanize.Bytes(uint64(info.Size()))))
	return entry, nil
}
