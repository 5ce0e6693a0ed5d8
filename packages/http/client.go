package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTempDirName is the directory under os.TempDir() that holds
// downloaded multipart resources.
const DefaultTempDirName = "fetchform"

type Client struct {
	tempDir        string
	fetchTimeout   time.Duration
	fetchRate      rate.Limit
	fetchBurst     int
	maxFields      int
	defaultHeaders map[string]string
	fetchClient    *http.Client
	logger         *slog.Logger
	observer       Observer
	fetcher        *Fetcher
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		tempDir:        filepath.Join(os.TempDir(), DefaultTempDirName),
		defaultHeaders: make(map[string]string),
		logger:         discardLogger(),
		observer:       nopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	fetchOpts := []FetcherOption{
		WithFetchHTTPClient(c.fetchClient),
		WithFetchDeadline(c.fetchTimeout),
		WithFetchLogger(c.logger),
	}
	if c.fetchRate > 0 {
		burst := c.fetchBurst
		if burst < 1 {
			burst = 1
		}
		fetchOpts = append(fetchOpts, WithFetchLimiter(rate.NewLimiter(c.fetchRate, burst)))
	}
	c.fetcher = NewFetcher(c.tempDir, fetchOpts...)

	return c
}

// WithTempDir sets where downloaded multipart resources are stored.
func WithTempDir(dir string) ClientOption {
	return func(c *Client) {
		if dir != "" {
			c.tempDir = dir
		}
	}
}

// WithFetchTimeout bounds each remote resource download. Downloads are not
// subject to the outer request timeout; zero leaves them unbounded.
func WithFetchTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.fetchTimeout = d
	}
}

// WithFetchRate limits remote resource downloads to perSecond with the given
// burst, shared by all requests of the client.
func WithFetchRate(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		c.fetchRate = rate.Limit(perSecond)
		c.fetchBurst = burst
	}
}

// WithMaxConcurrentFields caps how many multipart fields resolve at once.
// Zero means all fields resolve concurrently.
func WithMaxConcurrentFields(n int) ClientOption {
	return func(c *Client) {
		c.maxFields = n
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithFetchClient sets the HTTP client used to download remote resources.
func WithFetchClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.fetchClient = hc
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// TempDir returns the directory used for downloaded resources.
func (c *Client) TempDir() string {
	return c.fetcher.TempDir()
}

// Do runs the full pipeline for spec: normalization, multipart field
// resolution, transmission and temp file cleanup. Cleanup has finished by the
// time Do returns, whatever the outcome.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	start := time.Now()
	p := &pipeline{client: c, artifacts: &artifacts{}}

	resp, err := p.run(ctx, c.withDefaultHeaders(spec))

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.observer.RequestFinished(strings.ToUpper(orDefault(spec.Method, DefaultMethod)), statusCode, err, time.Since(start))

	return resp, err
}

// Go runs Do in its own goroutine and invokes callback exactly once with the
// outcome, after cleanup.
func (c *Client) Go(ctx context.Context, spec RequestSpec, callback func(*Response, error)) {
	go func() {
		callback(c.Do(ctx, spec))
	}()
}

func (c *Client) Get(ctx context.Context, spec RequestSpec) (*Response, error) {
	spec.Method = http.MethodGet
	return c.Do(ctx, spec)
}

func (c *Client) Post(ctx context.Context, spec RequestSpec) (*Response, error) {
	spec.Method = http.MethodPost
	return c.Do(ctx, spec)
}

// withDefaultHeaders returns spec with client defaults merged under its own
// headers, without touching the caller's map.
func (c *Client) withDefaultHeaders(spec RequestSpec) RequestSpec {
	if len(c.defaultHeaders) == 0 {
		return spec
	}
	headers := make(map[string]string, len(c.defaultHeaders)+len(spec.Headers))
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	out := RequestSpec{Headers: headers}
	for k, v := range spec.Headers {
		out.deleteHeader(k)
		headers[k] = v
	}
	spec.Headers = headers
	return spec
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// pipeline holds the state of one request. Its artifacts are never shared
// with another request.
type pipeline struct {
	client    *Client
	artifacts *artifacts
}

func (p *pipeline) run(ctx context.Context, spec RequestSpec) (*Response, error) {
	defer func() {
		report := p.artifacts.cleanup(p.client.logger)
		p.client.observer.ArtifactsCleaned(report)
	}()

	req := prepare(spec)

	decode, err := decoderFor(req.spec.Encoding)
	if err != nil {
		return nil, err
	}

	var form *formStream
	if req.strategy == BodyMultipart {
		resolver := &fieldResolver{
			fetcher:   p.client.fetcher,
			artifacts: p.artifacts,
			limit:     p.client.maxFields,
			logger:    p.client.logger,
			observer:  p.client.observer,
		}
		parts, err := resolver.resolve(ctx, req.fields)
		if err != nil {
			return nil, err
		}
		form = newFormStream(parts)
		defer form.close()
		req.spec.setHeader("Content-Type", form.ContentType())
	}

	return p.transmit(ctx, req, form, decode)
}

// transmit sends the prepared request over a single-use connection guarded by
// the idle timeout and buffers the decoded body.
func (p *pipeline) transmit(ctx context.Context, req *prepared, form *formStream, decode func(io.Reader) io.Reader) (*Response, error) {
	target := req.spec.URL()

	var body io.Reader
	switch {
	case form != nil:
		body = form.reader
	case req.strategy == BodyURLEncoded:
		body = strings.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.spec.Method, target, body)
	if err != nil {
		return nil, &TransportError{Method: req.spec.Method, URL: target, Err: err}
	}
	for k, v := range req.spec.Headers {
		httpReq.Header.Set(k, v)
	}
	if host, ok := req.spec.Header("Host"); ok && host != "" {
		httpReq.Host = host
	}

	transport := newIdleTransport(req.spec.Timeout)
	defer transport.CloseIdleConnections()
	hc := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	p.client.logger.Debug("sending request",
		"method", req.spec.Method, "url", target, "body", req.strategy.String())

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.spec.Method, URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	var buf strings.Builder
	if _, err := io.Copy(&buf, decode(httpResp.Body)); err != nil {
		return nil, &TransportError{Method: req.spec.Method, URL: target, Err: err}
	}

	return newResponse(httpResp, buf.String(), time.Since(start)), nil
}
