package http

import (
	"io"
	"log/slog"
	"time"
)

// Observer receives pipeline events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// RequestFinished is called once per request after cleanup. statusCode is
	// zero when err is set.
	RequestFinished(method string, statusCode int, err error, d time.Duration)
	// FetchFinished is called for every remote field download.
	FetchFinished(result FetchResult)
	// ArtifactsCleaned is called after temp files of a request are deleted.
	ArtifactsCleaned(report CleanupReport)
}

type nopObserver struct{}

func (nopObserver) RequestFinished(string, int, error, time.Duration) {}
func (nopObserver) FetchFinished(FetchResult)                         {}
func (nopObserver) ArtifactsCleaned(CleanupReport)                    {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
