package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
)

type WorkPool interface {
	Push(job Job)
}

// IndexPool runs index jobs on a fixed number of workers. SQLite serializes
// the writes; the workers overlap the parsing and extraction.
type IndexPool struct {
	queue   chan Job
	results chan Result
	wg      sync.WaitGroup
}

func NewIndexPool(ctx context.Context, indexer Indexer, size int) *IndexPool {
	if size < 1 {
		size = 1
	}
	pool := &IndexPool{
		queue:   make(chan Job),
		results: make(chan Result, size),
	}
	for i := 0; i < size; i++ {
		w := &IndexWorker{id: i, ctx: ctx, indexer: indexer, results: pool.results}
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			w.Run(pool.queue)
		}()
	}
	go func() {
		pool.wg.Wait()
		close(pool.results)
	}()
	return pool
}

// Push blocks until a worker takes the job.
func (p *IndexPool) Push(job Job) {
	p.queue <- job
}

// Close stops accepting jobs. Results drains once every worker is done.
func (p *IndexPool) Close() {
	close(p.queue)
}

func (p *IndexPool) Results() <-chan Result {
	return p.results
}

// IndexAll pushes one job per query and collects every result.
func IndexAll(ctx context.Context, indexer Indexer, size int, queries []string, force bool) []Result {
	pool := NewIndexPool(ctx, indexer, size)
	go func() {
		for _, q := range queries {
			pool.Push(Job{Query: q, Force: force})
		}
		pool.Close()
	}()

	results := make([]Result, 0, len(queries))
	for r := range pool.Results() {
		results = append(results, r)
	}
	return results
}

type IndexWorker struct {
	id      int
	ctx     context.Context
	indexer Indexer
	results chan<- Result
}

func (w *IndexWorker) Run(c <-chan Job) {
	log.Debug("IndexWorker is running", zap.Int("worker_id", w.id))
	for job := range c {
		log.Debug("Job received by worker", zap.Int("worker_id", w.id), zap.String("query", job.Query))
		res, err := w.indexer.IndexBook(w.ctx, job.Query, job.Force)
		if err != nil {
			log.Error("Failed to index book", zap.String("query", job.Query), zap.Error(err))
		}
		w.results <- Result{Job: job, Index: res, Err: err}
	}
}
