package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Xunop/e-oasis-mcp/internal/library"
)

type fakeSweeper struct {
	sweeps atomic.Int32
}

func (f *fakeSweeper) Sweep() int {
	f.sweeps.Add(1)
	return 0
}

func (f *fakeSweeper) Interval() time.Duration {
	return 20 * time.Millisecond
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before the deadline")
}

func TestScheduler(t *testing.T) {
	t.Run("sweeps run on their interval", func(t *testing.T) {
		s := NewScheduler()
		docs, texts := &fakeSweeper{}, &fakeSweeper{}
		if err := s.AddSweep("documents", docs); err != nil {
			t.Fatal(err)
		}
		if err := s.AddSweep("texts", texts); err != nil {
			t.Fatal(err)
		}
		if s.Len() != 2 {
			t.Errorf("expected 2 jobs, got %d", s.Len())
		}
		s.Start()
		defer s.Stop()
		waitFor(t, func() bool { return docs.sweeps.Load() >= 2 && texts.sweeps.Load() >= 2 })
	})

	t.Run("interval job gets a context cancelled by stop", func(t *testing.T) {
		s := NewScheduler()
		var runs atomic.Int32
		err := s.AddInterval("refresh", 20*time.Millisecond, func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("upstream down")
		})
		if err != nil {
			t.Fatal(err)
		}
		s.Start()
		waitFor(t, func() bool { return runs.Load() >= 1 })
		s.Stop()
		if s.Context().Err() == nil {
			t.Error("stop should cancel the context")
		}
	})

	t.Run("zero interval is rejected", func(t *testing.T) {
		s := NewScheduler()
		if err := s.AddInterval("never", 0, func(context.Context) error { return nil }); err == nil {
			t.Error("expected an error")
		}
	})
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
}

func (f *fakeIndexer) IndexBook(_ context.Context, query string, force bool) (*library.IndexResult, error) {
	if query == "missing" {
		return nil, errors.New("book missing not found")
	}
	f.mu.Lock()
	f.indexed = append(f.indexed, query)
	f.mu.Unlock()
	return &library.IndexResult{BookID: query, Indexed: 1, Unchanged: !force}, nil
}

func TestIndexAll(t *testing.T) {
	indexer := &fakeIndexer{}
	queries := []string{"a", "b", "missing", "c", "d"}
	results := IndexAll(context.Background(), indexer, 3, queries, true)
	if len(results) != len(queries) {
		t.Fatalf("expected %d results, got %d", len(queries), len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if r.Job.Query != "missing" {
				t.Errorf("unexpected failure for %s", r.Job.Query)
			}
			continue
		}
		if r.Index.BookID != r.Job.Query || r.Index.Unchanged {
			t.Errorf("unexpected result %+v", r.Index)
		}
	}
	if failed != 1 {
		t.Errorf("expected one failure, got %d", failed)
	}
	sort.Strings(indexer.indexed)
	if len(indexer.indexed) != 4 || indexer.indexed[0] != "a" || indexer.indexed[3] != "d" {
		t.Errorf("unexpected indexed books %v", indexer.indexed)
	}
}
