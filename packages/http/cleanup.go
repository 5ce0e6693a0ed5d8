package http

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// artifacts is the per-request list of temp files created while resolving
// fields. Appends may come from concurrently finishing resolver tasks.
type artifacts struct {
	mu    sync.Mutex
	paths []string
	once  sync.Once
}

func (a *artifacts) add(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, path)
}

// Paths returns a snapshot of the recorded paths.
func (a *artifacts) Paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}

// CleanupReport summarizes one cleanup run.
type CleanupReport struct {
	Removed int
	Failed  int
}

// cleanup deletes every recorded artifact exactly once. Deletion failures are
// logged and otherwise ignored; a file that is already gone counts as removed.
func (a *artifacts) cleanup(logger *slog.Logger) CleanupReport {
	var report CleanupReport
	a.once.Do(func() {
		a.mu.Lock()
		paths := a.paths
		a.paths = nil
		a.mu.Unlock()

		var errs *multierror.Error
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = multierror.Append(errs, err)
				report.Failed++
				continue
			}
			report.Removed++
		}
		if err := errs.ErrorOrNil(); err != nil {
			logger.Debug("temp artifact cleanup incomplete", "failed", report.Failed, "error", err)
		}
	})
	return report
}
