package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/fetchform/packages/capture"
	"github.com/fatih/color"
)

// truncate shortens long bodies for non-verbose output
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

type ConsoleFormatter struct {
	writer   io.Writer
	verbose  bool
	noColor  bool
	selector *capture.Selector
	maxBody  int
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:  os.Stdout,
		maxBody: 2048,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithSelector prints only the selected value instead of the body.
func WithSelector(sel capture.Selector) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.selector = &sel
	}
}

// WithMaxBody limits how much of the body is printed without -v. Zero
// disables the limit.
func WithMaxBody(n int) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.maxBody = n
	}
}

func (f *ConsoleFormatter) FormatResult(result *Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	title := result.Name
	if title == "" {
		title = result.File
	}
	if title != "" {
		fmt.Fprintf(f.writer, "\n%s\n", bold(title))
	}
	fmt.Fprintf(f.writer, "%s %s\n", bold(result.Method), result.URL)

	if result.Error != nil {
		fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), red(fmt.Sprintf("%v", result.Error)), cyan(fmt.Sprintf("(%dms)", result.Duration.Milliseconds())))
		return
	}

	resp := result.Response
	if resp == nil {
		return
	}

	symbol := green("✓")
	status := green(fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusMessage))
	switch {
	case resp.IsServerError() || resp.IsClientError():
		symbol = red("✗")
		status = red(fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusMessage))
	case resp.IsRedirect():
		symbol = yellow("→")
		status = yellow(fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusMessage))
	}
	fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, status, cyan(fmt.Sprintf("(%dms)", result.Duration.Milliseconds())))

	if f.verbose && len(resp.Headers) > 0 {
		fmt.Fprintf(f.writer, "    Headers:\n")
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "      %s: %s\n", name, resp.Headers[name])
		}
	}

	if f.selector != nil {
		value, ok := capture.NewExtractor(resp).Raw(*f.selector)
		if !ok {
			fmt.Fprintf(f.writer, "    %s\n", yellow("selection matched nothing"))
			return
		}
		fmt.Fprintf(f.writer, "%s\n", value)
		return
	}

	body := resp.Body
	if !f.verbose {
		body = truncate(body, f.maxBody)
	}
	if body != "" {
		fmt.Fprintf(f.writer, "%s\n", strings.TrimRight(body, "\n"))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("fetchform"), version)
}
