package http

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultProtocol is the scheme used when a spec leaves Protocol empty
	DefaultProtocol = "http:"
	// DefaultHost is the target host when none is given
	DefaultHost = "localhost"
	// DefaultPort is the port for plain http targets
	DefaultPort = 80
	// DefaultSecurePort is the port for https targets
	DefaultSecurePort = 443
	// DefaultMethod is the request method when none is given
	DefaultMethod = "GET"
	// DefaultPath is the request path when none is given
	DefaultPath = "/"
	// DefaultEncoding is the response text encoding
	DefaultEncoding = "utf8"
	// DefaultTimeout is the per-request socket idle timeout
	DefaultTimeout = 120 * time.Second
	// DefaultContentType is assumed for bodies without an explicit Content-Type
	DefaultContentType = "application/x-www-form-urlencoded"

	multipartContentType = "multipart/form-data"
)

// RequestSpec describes one outbound request. Zero-valued fields are filled
// in by Normalize.
type RequestSpec struct {
	Protocol string
	Host     string
	Port     int
	Method   string
	Path     string
	Headers  map[string]string
	Query    map[string]any
	Body     map[string]any
	Encoding string
	Timeout  time.Duration
}

// BodyStrategy is the encoding chosen for a request body.
type BodyStrategy int

const (
	BodyNone BodyStrategy = iota
	BodyURLEncoded
	BodyMultipart
)

func (s BodyStrategy) String() string {
	switch s {
	case BodyURLEncoded:
		return "urlencoded"
	case BodyMultipart:
		return "multipart"
	default:
		return "none"
	}
}

// Normalize returns a copy of spec with defaults applied and the query merged
// into the path. The input spec and its maps are left untouched.
func Normalize(spec RequestSpec) RequestSpec {
	out := spec

	if out.Protocol == "" {
		out.Protocol = DefaultProtocol
	}
	if !strings.HasSuffix(out.Protocol, ":") {
		out.Protocol += ":"
	}
	out.Protocol = strings.ToLower(out.Protocol)
	if out.Host == "" {
		out.Host = DefaultHost
	}
	if out.Port == 0 {
		out.Port = defaultPortFor(out.Protocol)
	}
	if out.Method == "" {
		out.Method = DefaultMethod
	}
	out.Method = strings.ToUpper(out.Method)
	if out.Path == "" {
		out.Path = DefaultPath
	}
	if out.Encoding == "" {
		out.Encoding = DefaultEncoding
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}

	out.Headers = make(map[string]string, len(spec.Headers))
	for k, v := range spec.Headers {
		out.Headers[k] = v
	}

	if spec.Query != nil {
		sep := "?"
		if strings.Contains(out.Path, "?") {
			sep = "&"
		}
		if q := EncodeForm(spec.Query); q != "" {
			out.Path = out.Path + sep + q
		}
		out.Query = nil
	}

	return out
}

func defaultPortFor(protocol string) int {
	if protocol == "https:" {
		return DefaultSecurePort
	}
	return DefaultPort
}

// URL returns the absolute target of a normalized spec.
func (s RequestSpec) URL() string {
	scheme := strings.TrimSuffix(s.Protocol, ":")
	host := s.Host
	if s.Port != defaultPortFor(s.Protocol) {
		host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(s.Port))
	} else if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + host + path
}

// Header looks up a header case-insensitively.
func (s RequestSpec) Header(key string) (string, bool) {
	for k, v := range s.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// setHeader replaces any case variant of key with value.
func (s *RequestSpec) setHeader(key, value string) {
	s.deleteHeader(key)
	s.Headers[key] = value
}

func (s *RequestSpec) deleteHeader(key string) {
	for k := range s.Headers {
		if strings.EqualFold(k, key) {
			delete(s.Headers, k)
		}
	}
}

// ContentType returns the declared Content-Type or the form default.
func (s RequestSpec) ContentType() string {
	if ct, ok := s.Header("Content-Type"); ok && ct != "" {
		return ct
	}
	return DefaultContentType
}

// Strategy reports which body encoding applies to a normalized spec.
func (s RequestSpec) Strategy() BodyStrategy {
	if s.Body == nil {
		return BodyNone
	}
	if strings.Contains(strings.ToLower(s.ContentType()), multipartContentType) {
		return BodyMultipart
	}
	return BodyURLEncoded
}

// prepared is a normalized request with its body strategy fixed.
type prepared struct {
	spec     RequestSpec
	strategy BodyStrategy
	body     string
	fields   []FormField
}

// prepare normalizes spec and serializes or flattens its body according to
// the selected strategy.
func prepare(spec RequestSpec) *prepared {
	p := &prepared{spec: Normalize(spec)}
	p.strategy = p.spec.Strategy()

	switch p.strategy {
	case BodyURLEncoded:
		contentType := p.spec.ContentType()
		p.body = EncodeForm(p.spec.Body)
		p.spec.setHeader("Content-Type", contentType)
		p.spec.setHeader("Content-Length", strconv.Itoa(len(p.body)))
	case BodyMultipart:
		p.fields = FlattenForm(p.spec.Body)
		// the form writer's headers replace the caller's
		p.spec.Headers = make(map[string]string)
	}
	p.spec.Body = nil

	return p
}
