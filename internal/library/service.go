package library // import "github.com/Xunop/e-oasis-mcp/internal/library"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/cache"
	"github.com/Xunop/e-oasis-mcp/internal/config"
	"github.com/Xunop/e-oasis-mcp/internal/extract"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
	"github.com/Xunop/e-oasis-mcp/internal/store"
)

type Config struct {
	ChunkThreshold     int
	ChunkSize          int
	MaxPagesPerRead    int
	CoverWebpThreshold int
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration
	Dedup              extract.DedupConfig
}

func ConfigFromOptions(o *config.Options) Config {
	return Config{
		ChunkThreshold:     o.ChunkThreshold,
		ChunkSize:          o.ChunkSize,
		MaxPagesPerRead:    o.MaxPagesPerRead,
		CoverWebpThreshold: o.CoverWebpThreshold,
		CacheTTL:           o.CacheTTLDuration(),
		CacheSweepInterval: o.CacheSweepDuration(),
		Dedup: extract.DedupConfig{
			PrefixWindow: o.DedupPrefixWindow,
			SuffixWindow: o.DedupSuffixWindow,
			MinWindow:    o.DedupMinWindow,
			Step:         o.DedupStep,
			MinLength:    o.DedupMinLength,
			MaxOffset:    o.DedupMaxOffset,
			Quorum:       o.DedupQuorum,
			MinChapters:  o.DedupMinChapters,
		},
	}
}

func DefaultConfig() Config {
	return Config{
		ChunkThreshold:     50000,
		ChunkSize:          30000,
		MaxPagesPerRead:    10,
		CoverWebpThreshold: 256 << 10,
		CacheTTL:           10 * time.Minute,
		CacheSweepInterval: 2 * time.Minute,
		Dedup:              extract.DefaultDedupConfig(),
	}
}

// Service is the book side of the application: the catalog, opened
// documents, reading positions, annotations and the full-text index.
type Service struct {
	store    *store.Store
	catalog  storage.Storage
	session  storage.Storage
	cfg      Config
	matchers []Matcher

	// docs is keyed by file path, texts by book id and chapter index.
	docs  *cache.TTL[*Document]
	texts *cache.TTL[string]

	// mu serializes read-modify-write cycles of the JSON documents.
	mu  sync.Mutex
	now func() time.Time
}

func NewService(s *store.Store, catalog, session storage.Storage, cfg Config) *Service {
	return &Service{
		store:    s,
		catalog:  catalog,
		session:  session,
		cfg:      cfg,
		matchers: DefaultMatchers,
		docs: cache.New[*Document](cfg.CacheTTL, cfg.CacheSweepInterval,
			cache.WithOnEvict[*Document](func(path string, _ *Document) {
				log.Debug("Evicted document", zap.String("path", path))
			})),
		texts: cache.New[string](cfg.CacheTTL, cfg.CacheSweepInterval),
		now:   time.Now,
	}
}

// DocumentCache and TextCache are exposed so the scheduler can sweep them.
func (s *Service) DocumentCache() *cache.TTL[*Document] {
	return s.docs
}

func (s *Service) TextCache() *cache.TTL[string] {
	return s.texts
}

func (s *Service) loadCatalog() (*model.Catalog, error) {
	catalog := &model.Catalog{Books: []*model.LibraryEntry{}}
	if _, err := storage.LoadJSON(s.catalog, catalog); err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}
	return catalog, nil
}

func (s *Service) loadSession() (*model.Session, error) {
	session := &model.Session{}
	if _, err := storage.LoadJSON(s.session, session); err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	if session.Positions == nil {
		session.Positions = map[string]*model.ReadingPosition{}
	}
	return session, nil
}

func (s *Service) ListLibrary(_ context.Context) ([]*model.LibraryEntry, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	return catalog.Books, nil
}

// ResolveBook finds a catalog entry by id or fuzzy title.
func (s *Service) ResolveBook(_ context.Context, query string) (*model.LibraryEntry, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	if book, ok := Resolve(s.matchers, query, catalog.Books); ok {
		return book, nil
	}
	return nil, bookNotFound(query)
}

func (s *Service) document(path string) (*Document, error) {
	return s.docs.GetOrPopulate(path, func() (*Document, error) {
		log.Debug("Opening document", zap.String("path", path))
		return OpenDocument(path, s.cfg.CoverWebpThreshold)
	})
}

// openBook resolves query, a catalog query or a file path, to an opened document.
func (s *Service) openBook(ctx context.Context, query string) (*Document, error) {
	if _, ok := FormatOf(query); ok {
		if info, err := os.Stat(query); err == nil && !info.IsDir() {
			return s.document(query)
		}
	}
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.document(book.Path)
}

// LoadResult is the outcome of LoadBook.
type LoadResult struct {
	Book      *model.LibraryEntry    `json:"book"`
	Structure *model.BookStructure   `json:"structure"`
	Position  *model.ReadingPosition `json:"position,omitempty"`
	// PositionReset is set when the saved position no longer fit the book
	// and was moved back to chapter 0.
	PositionReset bool `json:"positionReset,omitempty"`
}

// LoadBook opens a book by path or catalog query, records it in the catalog
// and repairs a saved reading position that falls outside the chapters.
func (s *Service) LoadBook(ctx context.Context, query string) (*LoadResult, error) {
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return nil, err
	}
	structure := doc.Structure
	if err := s.store.SaveStructure(ctx, structure); err != nil {
		log.Warn("Failed to cache structure", zap.String("book_id", structure.BookID), zap.Error(err))
	}

	entry, err := s.touchCatalog(doc)
	if err != nil {
		return nil, err
	}
	position, reset, err := s.validatePosition(structure)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Book: entry, Structure: structure, Position: position, PositionReset: reset}, nil
}

// touchCatalog refreshes the catalog entry of an opened document, adding it
// when the file was loaded by path without a scan.
func (s *Service) touchCatalog(doc *Document) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	path, _ := filepath.Abs(doc.Path)
	var entry *model.LibraryEntry
	for _, b := range catalog.Books {
		if b.Path == path || b.Path == doc.Path {
			entry = b
			break
		}
	}
	now := s.now()
	if entry == nil {
		info, err := os.Stat(doc.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", doc.Path)
		}
		entry = &model.LibraryEntry{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			AddedAt: now,
		}
		catalog.Books = append(catalog.Books, entry)
	}
	structure := doc.Structure
	entry.ID = structure.BookID
	entry.Title = structure.Title
	entry.Author = structure.Author
	entry.Format = structure.Format
	entry.Description = structure.Description
	entry.ChapterCount = structure.ChapterCount()
	entry.CoverURL = ""
	if structure.Cover != "" {
		entry.CoverURL = fmt.Sprintf("/api/v1/books/%s/cover", structure.BookID)
	}
	entry.LastRead = &now
	catalog.UpdatedAt = now

	if err := storage.SaveJSON(s.catalog, catalog); err != nil {
		return nil, errors.Wrap(err, "failed to save catalog")
	}
	return entry, nil
}

// TableOfContents returns the structure of a book, from the structure cache
// when the book was loaded before.
func (s *Service) TableOfContents(ctx context.Context, query string) (*model.BookStructure, error) {
	if book, err := s.ResolveBook(ctx, query); err == nil && book.ID != "" {
		if _, open := s.docs.Get(book.Path); !open {
			cached, err := s.store.GetStructure(ctx, book.ID)
			if err != nil {
				log.Warn("Failed to read structure cache", zap.String("book_id", book.ID), zap.Error(err))
			}
			if cached != nil {
				return cached, nil
			}
		}
	}
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return doc.Structure, nil
}

// Cover returns the cover data URI of a cataloged book, empty when it has none.
func (s *Service) Cover(ctx context.Context, query string) (string, error) {
	doc, err := s.openBook(ctx, query)
	if err != nil {
		return "", err
	}
	return doc.Structure.Cover, nil
}
