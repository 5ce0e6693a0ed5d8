package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// FetchStatus tells a downloaded resource apart from a soft rejection.
type FetchStatus int

const (
	FetchRejected FetchStatus = iota
	FetchOK
)

func (s FetchStatus) String() string {
	if s == FetchOK {
		return "ok"
	}
	return "rejected"
}

// FetchResult is the outcome of a remote resource download. A rejected fetch
// is never an error: the caller drops the field that referenced it.
type FetchResult struct {
	Status FetchStatus
	// Path of the downloaded temp file, set when Status is FetchOK.
	Path string
	// Reason describes why the fetch was rejected.
	Reason string
}

// OK reports whether the resource was downloaded.
func (r FetchResult) OK() bool {
	return r.Status == FetchOK
}

func rejected(format string, args ...any) FetchResult {
	return FetchResult{Status: FetchRejected, Reason: fmt.Sprintf(format, args...)}
}

// Fetcher downloads remote resources into uniquely named temp files.
type Fetcher struct {
	httpClient *http.Client
	tempDir    string
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
	newID      func() string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// NewFetcher creates a fetcher that stores downloads under tempDir.
func NewFetcher(tempDir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{},
		tempDir:    tempDir,
		logger:     discardLogger(),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithFetchHTTPClient sets the client used for downloads.
func WithFetchHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if hc != nil {
			f.httpClient = hc
		}
	}
}

// WithFetchDeadline bounds each download. Zero means no limit.
func WithFetchDeadline(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithFetchLimiter throttles downloads across all requests of a client.
func WithFetchLimiter(l *rate.Limiter) FetcherOption {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithFetchLogger sets the logger for rejected downloads.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// TempDir returns the directory downloads are written to.
func (f *Fetcher) TempDir() string {
	return f.tempDir
}

// Fetch issues a GET for rawURL and writes a 200 response body to
// <tempDir>/<uuid>_<basename>. Every failure is reported as a rejection.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) FetchResult {
	result := f.fetch(ctx, rawURL)
	if !result.OK() {
		f.logger.Debug("remote resource rejected", "url", rawURL, "reason", result.Reason)
	}
	return result
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) FetchResult {
	target, err := parseFetchURL(rawURL)
	if err != nil {
		return rejected("%v", err)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return rejected("rate limit: %v", err)
		}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return rejected("build request: %v", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return rejected("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return rejected("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(f.tempDir, 0o755); err != nil {
		return rejected("create temp dir: %v", err)
	}

	name := f.newID() + "_" + remoteBaseName(target)
	dest := filepath.Join(f.tempDir, name)

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return rejected("create temp file: %v", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dest)
		if copyErr == nil {
			copyErr = closeErr
		}
		return rejected("download: %v", copyErr)
	}

	return FetchResult{Status: FetchOK, Path: dest}
}

// parseFetchURL accepts absolute http and https URLs, filling the default
// port for the scheme.
func parseFetchURL(rawURL string) (*neturl.URL, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a host")
	}
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	return u, nil
}

func remoteBaseName(u *neturl.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "download"
	}
	return strings.NewReplacer("/", "_", "\\", "_").Replace(base)
}

// storedFileName strips the unique id prefix a Fetcher puts in front of the
// original base name.
func storedFileName(p string) string {
	name := filepath.Base(p)
	if _, rest, found := strings.Cut(name, "_"); found && rest != "" {
		return rest
	}
	return name
}
