package worker // import "github.com/Xunop/e-oasis-mcp/internal/worker"

import (
	"context"

	"github.com/Xunop/e-oasis-mcp/internal/library"
)

// Job asks for one book to be indexed. Query is anything the library
// resolves: an id, a title or a path.
type Job struct {
	Query string
	Force bool
}

type Result struct {
	Job   Job
	Index *library.IndexResult
	Err   error
}

type Worker interface {
	Run(c <-chan Job)
}

// Indexer is the part of library.Service the index workers need.
type Indexer interface {
	IndexBook(ctx context.Context, query string, force bool) (*library.IndexResult, error)
}
