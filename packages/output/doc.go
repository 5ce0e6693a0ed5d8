// Package output provides formatters for displaying request results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output, one document per result
//
// Both formatters can print a single selected value (see package capture)
// instead of the whole body.
package output
