// Package conc includes helpers for concurrency patterns that avoid some
// of the most common pitfalls.
package conc

import (
	"context"
	"sync"
)

// Testing should be set to true when running tests for code that uses this
// package. It makes all functionality synchronous and tests deterministic.
var Testing bool

// Go runs the provided function in a goroutine if Testing is not set,
// and synchronously if it is.
func Go(f func()) {
	if !Testing {
		go f()
	} else {
		f()
	}
}

// GoCtx runs the provided function with the provided context in a goroutine
// if Testing is not set, and synchronously if it is.
func GoCtx(ctx context.Context, f func(ctx context.Context)) {
	if !Testing {
		go f(ctx)
	} else {
		f(ctx)
	}
}

// Parallel runs a set of functions concurrently and collects the first
// error returned.
type Parallel struct {
	wg    sync.WaitGroup
	mu    sync.Mutex
	first error
}

// NewParallel returns an empty Parallel group.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Go starts f in the group.
func (p *Parallel) Go(f func() error) {
	p.wg.Add(1)
	run := func() {
		defer p.wg.Done()
		if err := f(); err != nil {
			p.mu.Lock()
			if p.first == nil {
				p.first = err
			}
			p.mu.Unlock()
		}
	}
	if Testing {
		run()
	} else {
		go run()
	}
}

// Wait blocks until all functions complete and returns the first error.
func (p *Parallel) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.first
}
