package specfile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/fetchform/packages/core/env"
	"github.com/abdul-hamid-achik/fetchform/packages/http"
)

//go:embed schema.json
var schemaJSON []byte

// Document is a parsed request document.
type Document struct {
	Name    string
	Path    string
	Request http.RequestSpec
}

// ValidationError lists the schema violations of a request document.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	where := "request document"
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("%s: schema validation failed: %s", where, strings.Join(e.Issues, "; "))
}

var ErrEmptyDocument = errors.New("empty request document")

// Load reads, validates and converts the document at path. A nil resolver
// leaves {{...}} expressions untouched.
func Load(path string, resolver *env.Resolver) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request document: %w", err)
	}

	doc, err := Parse(data, resolver)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse converts YAML or JSON document data into a request.
func Parse(data []byte, resolver *env.Resolver) (*Document, error) {
	raw, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	if resolver != nil {
		raw = resolver.ResolveValue(raw).(map[string]any)
	}
	return build(raw)
}

// Validate checks document data against the request document schema
// without resolving it.
func Validate(data []byte) error {
	raw, err := decode(data)
	if err != nil {
		return err
	}
	return validate(raw)
}

// ValidateFile is Validate for the document at path.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read request document: %w", err)
	}
	if err := Validate(data); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return verr
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decode(data []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse request document: %w", err)
	}
	if v == nil {
		return nil, ErrEmptyDocument
	}
	m, ok := normalize(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("request document must be a mapping, got %T", v)
	}
	return m, nil
}

// normalize turns YAML-decoded values into their JSON-compatible form.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func validate(raw map[string]any) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode request document: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &ValidationError{Issues: issues}
}

func build(raw map[string]any) (*Document, error) {
	doc := &Document{}
	spec := &doc.Request

	if name, ok := raw["name"].(string); ok {
		doc.Name = name
	}
	if u, ok := raw["url"].(string); ok {
		if err := applyURL(spec, u); err != nil {
			return nil, err
		}
	}

	stringField(raw, "protocol", &spec.Protocol)
	stringField(raw, "host", &spec.Host)
	stringField(raw, "method", &spec.Method)
	stringField(raw, "path", &spec.Path)
	stringField(raw, "encoding", &spec.Encoding)

	if v, ok := raw["port"]; ok {
		port, err := parsePort(v)
		if err != nil {
			return nil, err
		}
		spec.Port = port
	}

	if headers, ok := raw["headers"].(map[string]any); ok {
		spec.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			spec.Headers[k] = fmt.Sprint(v)
		}
	}
	if query, ok := raw["query"].(map[string]any); ok {
		spec.Query = query
	}
	if body, ok := raw["body"].(map[string]any); ok {
		spec.Body = body
	}

	if v, ok := raw["timeout"]; ok {
		timeout, err := ParseTimeout(v)
		if err != nil {
			return nil, err
		}
		spec.Timeout = timeout
	}

	return doc, nil
}

func stringField(raw map[string]any, key string, dst *string) {
	if v, ok := raw[key].(string); ok && v != "" {
		*dst = v
	}
}

func applyURL(spec *http.RequestSpec, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}

	spec.Protocol = u.Scheme + ":"
	spec.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := parsePort(p)
		if err != nil {
			return err
		}
		spec.Port = port
	}
	spec.Path = u.EscapedPath()
	if spec.Path == "" {
		spec.Path = "/"
	}
	if u.RawQuery != "" {
		spec.Path += "?" + u.RawQuery
	}
	return nil
}

func parsePort(v any) (int, error) {
	var port int
	switch val := v.(type) {
	case int:
		port = val
	case int64:
		port = int(val)
	case uint64:
		if val > math.MaxInt32 {
			return 0, fmt.Errorf("invalid port %d", val)
		}
		port = int(val)
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("invalid port %v", val)
		}
		port = int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid port %q", val)
		}
		port = n
	default:
		return 0, fmt.Errorf("invalid port %v", v)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// ParseTimeout accepts milliseconds as a number or numeric string, or a
// duration string such as "30s".
func ParseTimeout(v any) (time.Duration, error) {
	var ms float64
	switch val := v.(type) {
	case int:
		ms = float64(val)
	case int64:
		ms = float64(val)
	case uint64:
		ms = float64(val)
	case float64:
		ms = val
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			ms = n
			break
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q", val)
		}
		if d < 0 {
			return 0, fmt.Errorf("invalid timeout %q: must not be negative", val)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("invalid timeout %v", v)
	}

	if ms < 0 {
		return 0, fmt.Errorf("invalid timeout %v: must not be negative", v)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// Variables lists the {{...}} expressions in the document at path that
// resolver cannot resolve, sorted and without duplicates.
func Variables(path string, resolver *env.Resolver) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request document: %w", err)
	}
	raw, err := decode(data)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	walkStrings(raw, func(s string) {
		for _, name := range resolver.GetUnresolvedVariables(s) {
			seen[name] = true
		}
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func walkStrings(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]any:
		for k, item := range val {
			fn(k)
			walkStrings(item, fn)
		}
	case []any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}
