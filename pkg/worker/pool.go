package worker

import (
	"errors"
	"sync/atomic"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
)

// Pool bounds the number of concurrent background jobs.
// The sync layer pushes its document flushes through one of these so that
// many sessions in one process cannot pile unbounded goroutines onto the
// store.
type Pool struct {
	limit   int
	tickers chan int
	num     atomic.Int32
}

// NewPool creates a pool with the given concurrency limit
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 4
	}

	p := &Pool{
		limit:   limit,
		tickers: make(chan int, limit),
	}

	for i := 0; i < limit; i++ {
		p.tickers <- i
	}

	return p
}

// Do runs the job on a pool worker, blocking until a ticket is free
func (p *Pool) Do(job func()) (ticket int, err error) {
	ticket, ok := <-p.tickers
	if !ok {
		return -1, ErrPoolClosed
	}

	p.num.Add(1)

	go func() {
		if job != nil {
			job()
		}
		p.tickers <- ticket
		p.num.Add(-1)
	}()

	return ticket, nil
}

// Wait drains all tickets, waiting for running jobs, then closes the pool
func (p *Pool) Wait() {
	for i := 0; i < p.limit; i++ {
		<-p.tickers
	}
	close(p.tickers)
}

// Num returns the number of jobs in progress
func (p *Pool) Num() int {
	return int(p.num.Load())
}
