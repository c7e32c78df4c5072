// Package report writes failure reports for errors that must not take down a
// connection or the process, so they can be inspected after the fact.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reporter persists one file per reported failure. All methods are best
// effort: a reporter never returns an error to its caller.
type Reporter struct {
	dir string
	log *zerolog.Logger

	mu  sync.Mutex
	seq int
}

// New builds a reporter writing into dir. An empty dir disables files; errors
// are still logged.
func New(dir string, logger *zerolog.Logger) *Reporter {
	return &Reporter{dir: dir, log: logger}
}

// Report logs the cause and, when a directory is configured, writes a report
// file with the cause and the current stack.
func (r *Reporter) Report(cause error) {
	if cause == nil {
		return
	}
	if r.log != nil {
		r.log.Error().Err(cause).Msg("reported failure")
	}
	if r.dir == "" {
		return
	}

	r.mu.Lock()
	r.seq++
	name := fmt.Sprintf("%s-%03d.txt", time.Now().UTC().Format("20060102-150405"), r.seq)
	r.mu.Unlock()

	body := fmt.Sprintf("time: %s\nerror: %v\n\nstack:\n%s", time.Now().UTC().Format(time.RFC3339), cause, debug.Stack())

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.warn(err)
		return
	}
	if err := os.WriteFile(filepath.Join(r.dir, name), []byte(body), 0o600); err != nil {
		r.warn(err)
	}
}

func (r *Reporter) warn(err error) {
	if r.log != nil {
		r.log.Warn().Err(err).Msg("failed to write failure report")
	}
}
