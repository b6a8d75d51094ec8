package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
)

// LocalStorage is a whole-file document on the local disk. Writes go to a
// temporary file in the same directory which then replaces the document, so
// readers never observe a partial write.
type LocalStorage struct {
	// Path of the document
	Path string

	mu sync.Mutex
}

func NewLocalStorage(path string) *LocalStorage {
	return &LocalStorage{Path: path}
}

func (s *LocalStorage) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace %s", s.Path)
	}
	log.Debug("Stored document", zap.String("path", s.Path), zap.String("size", humanize.Bytes(uint64(len(data)))))
	return nil
}

func (s *LocalStorage) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", s.Path)
	}
	return data, nil
}

// SaveJSON encodes v and saves it to s.
func SaveJSON(s Storage, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode document")
	}
	return s.Save(data)
}

// LoadJSON decodes the document of s into v. A missing document leaves v
// untouched and reports false.
func LoadJSON(s Storage, v any) (bool, error) {
	data, err := s.Load()
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "failed to decode document")
	}
	return true, nil
}
