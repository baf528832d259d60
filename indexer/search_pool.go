package indexer

import (
	"runtime"
	"sync"
)

// searchJob is a single query handed to the pool.
type searchJob struct {
	query   []float32
	n       int
	searchK int
	result  []SearchResult
	wg      sync.WaitGroup
}

// searchPool bounds concurrent queries against one index; every worker owns
// its buffers so concurrent queries never share scratch memory.
type searchPool struct {
	index *Index
	jobs  chan *searchJob
	wg    sync.WaitGroup
}

func newSearchPool(index *Index, nWorkers, bufSize int) *searchPool {
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}
	p := &searchPool{
		index: index,
		jobs:  make(chan *searchJob, bufSize),
	}
	for i := 0; i < nWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *searchPool) worker() {
	defer p.wg.Done()
	bufs := newSearchBufs()
	for job := range p.jobs {
		job.result = p.index.searchImpl(job.query, job.n, job.searchK, bufs)
		job.wg.Done()
	}
}

// Search runs the query on a worker and waits for the result.
func (p *searchPool) Search(query []float32, n, searchK int) []SearchResult {
	job := &searchJob{query: query, n: n, searchK: searchK}
	job.wg.Add(1)
	p.jobs <- job
	job.wg.Wait()
	return job.result
}

// Close stops the workers after queued jobs finish.
func (p *searchPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
