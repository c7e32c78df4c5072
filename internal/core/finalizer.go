package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/report"
)

// Finalizer runs the login-completion work off the transport threads: a small
// bounded pool of workers executing fire-and-forget tasks. Task failures are
// reported asynchronously and never reach the packet path.
type Finalizer struct {
	tasks    chan finalizeTask
	wg       sync.WaitGroup
	reporter *report.Reporter
	log      *zerolog.Logger

	mu     sync.Mutex
	closed bool
}

type finalizeTask struct {
	name string
	fn   func() error
}

func NewFinalizer(workers int, reporter *report.Reporter, logger *zerolog.Logger) *Finalizer {
	if workers <= 0 {
		workers = 4
	}
	f := &Finalizer{
		tasks:    make(chan finalizeTask, workers*16),
		reporter: reporter,
		log:      logger,
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	return f
}

func (f *Finalizer) worker() {
	defer f.wg.Done()
	for t := range f.tasks {
		if err := t.fn(); err != nil {
			if f.log != nil {
				f.log.Error().Err(err).Str("nickname", t.name).Msg("login finalization failed")
			}
			if f.reporter != nil {
				f.reporter.Report(err)
			}
		}
	}
}

// Submit queues a completion task for the named attempt. Returns false if the
// finalizer is already closed.
func (f *Finalizer) Submit(name string, fn func() error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.tasks <- finalizeTask{name: name, fn: fn}
	return true
}

// Close stops accepting tasks and waits for queued work to drain.
func (f *Finalizer) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.tasks)
	f.mu.Unlock()

	f.wg.Wait()
}
