package output

import (
	"time"

	"github.com/abdul-hamid-achik/fetchform/packages/http"
)

// Result is one sent request document and its outcome.
type Result struct {
	File     string
	Name     string
	Method   string
	URL      string
	Response *http.Response
	Error    error
	Duration time.Duration
}

// Formatter renders results.
type Formatter interface {
	FormatResult(result *Result)
	FormatError(err error)
	FormatHeader(version string)
}
