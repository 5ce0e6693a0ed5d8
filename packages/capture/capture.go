package capture

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/fetchform/packages/http"
	"github.com/tidwall/gjson"
)

// Source is the part of a response a selector reads from.
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

// Selector addresses one value of a response.
type Selector struct {
	Source Source
	Path   string
}

// ParseSelector parses "status", "duration", "header.<name>", "body" or
// "body.<gjson path>". Anything else is taken as a body path.
func ParseSelector(expr string) (Selector, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return Selector{}, fmt.Errorf("empty selector")
	case expr == "status":
		return Selector{Source: SourceStatus}, nil
	case expr == "duration":
		return Selector{Source: SourceDuration}, nil
	case expr == "body":
		return Selector{Source: SourceBody}, nil
	case strings.HasPrefix(expr, "header."):
		name := strings.TrimPrefix(expr, "header.")
		if name == "" {
			return Selector{}, fmt.Errorf("selector %q: missing header name", expr)
		}
		return Selector{Source: SourceHeader, Path: name}, nil
	case strings.HasPrefix(expr, "body."):
		return Selector{Source: SourceBody, Path: strings.TrimPrefix(expr, "body.")}, nil
	default:
		return Selector{Source: SourceBody, Path: expr}, nil
	}
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() || gjson.Valid(resp.Body) {
		e.bodyJSON = gjson.Parse(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(sel Selector) (any, bool) {
	switch sel.Source {
	case SourceBody:
		return e.extractFromBody(sel.Path)
	case SourceHeader:
		return e.extractFromHeader(sel.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// Raw returns the selected value as text: JSON fragments keep their JSON
// form, strings are unquoted.
func (e *Extractor) Raw(sel Selector) (string, bool) {
	if sel.Source == SourceBody && e.bodyJSON.Exists() {
		result := e.bodyJSON
		if sel.Path != "" {
			result = e.bodyJSON.Get(sel.Path)
		}
		if !result.Exists() {
			return "", false
		}
		if result.Type == gjson.String {
			return result.Str, true
		}
		return result.Raw, true
	}

	v, ok := e.Extract(sel)
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// ExtractAll evaluates every selector expression against resp. Invalid or
// unmatched expressions are left out of the result.
func ExtractAll(resp *http.Response, exprs []string) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, expr := range exprs {
		sel, err := ParseSelector(expr)
		if err != nil {
			continue
		}
		if value, ok := extractor.Extract(sel); ok {
			results[expr] = value
		}
	}

	return results
}
