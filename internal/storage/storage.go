package storage // import "github.com/Xunop/e-oasis-mcp/internal/storage"

type Storage interface {
	// Save replaces the stored document with data
	Save(data []byte) error
	// Load returns the stored document, nil when it does not exist yet
	Load() ([]byte, error)
}
