// Package worker manages periodic background tasks.
package worker

import (
	"sync"
	"time"
)

// Worker represents a mechanism performing periodic background work.
type Worker interface {
	Start()
	Stop(wait time.Duration)
	Started() bool
}

type repeat struct {
	period time.Duration
	fn     func()

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRepeat returns a worker that invokes fn every period until stopped.
// The first invocation happens one period after Start.
func NewRepeat(period time.Duration, fn func()) Worker {
	return &repeat{period: period, fn: fn}
}

func (w *repeat) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go func() {
		defer close(doneCh)
		t := time.NewTicker(w.period)
		defer t.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-t.C:
				w.fn()
			}
		}
	}()
}

func (w *repeat) Stop(wait time.Duration) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	select {
	case <-doneCh:
	case <-time.After(wait):
	}
}

func (w *repeat) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Collection is a set of workers started and stopped together.
type Collection struct {
	workers []Worker
}

// AddWorker adds a worker to the collection.
func (c *Collection) AddWorker(w Worker) {
	c.workers = append(c.workers, w)
}

// Start starts all workers.
func (c *Collection) Start() {
	for _, wk := range c.workers {
		wk.Start()
	}
}

// Stop stops all workers, giving each up to wait to finish.
func (c *Collection) Stop(wait time.Duration) {
	var wg sync.WaitGroup
	for _, wk := range c.workers {
		wk := wk
		wg.Add(1)
		go func() {
			defer wg.Done()
			wk.Stop(wait)
		}()
	}
	wg.Wait()
}
