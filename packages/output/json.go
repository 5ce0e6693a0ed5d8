package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/fetchform/packages/capture"
)

// JSONOutput represents one result as JSON
type JSONOutput struct {
	File     string        `json:"file,omitempty"`
	Name     string        `json:"name,omitempty"`
	Request  JSONRequest   `json:"request"`
	Response *JSONResponse `json:"response,omitempty"`
	Selected any           `json:"selected,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
}

// JSONFormatter writes one JSON document per result
type JSONFormatter struct {
	writer   io.Writer
	selector *capture.Selector
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func JSONWithSelector(sel capture.Selector) JSONOption {
	return func(f *JSONFormatter) {
		f.selector = &sel
	}
}

func (f *JSONFormatter) FormatResult(result *Result) {
	out := JSONOutput{
		File: result.File,
		Name: result.Name,
		Request: JSONRequest{
			Method: result.Method,
			URL:    result.URL,
		},
		Duration: float64(result.Duration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	if result.Error != nil {
		out.Error = result.Error.Error()
	}

	if resp := result.Response; resp != nil {
		out.Response = &JSONResponse{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Headers:    resp.Headers,
			Body:       resp.Body,
			Duration:   float64(resp.Duration.Milliseconds()),
		}
		if f.selector != nil {
			if v, ok := capture.NewExtractor(resp).Extract(*f.selector); ok {
				out.Selected = v
			}
		}
	}

	f.encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	f.encode(map[string]string{"error": err.Error()})
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

func (f *JSONFormatter) encode(v any) {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(v)
}
