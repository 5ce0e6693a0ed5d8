package metrics

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter writes what a Collector has gathered to its destination.
type Exporter interface {
	Export(c *Collector) error
}

// PrometheusExporter writes the collector's registry in the node_exporter
// textfile format.
type PrometheusExporter struct {
	path string
}

func NewPrometheusExporter(path string) *PrometheusExporter {
	return &PrometheusExporter{path: path}
}

func (p *PrometheusExporter) Export(c *Collector) error {
	if err := prometheus.WriteToTextfile(p.path, c.Registry()); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// ExporterFor picks the exporter for a metrics file by extension: .json
// gets a JSON summary, anything else a Prometheus textfile.
func ExporterFor(path string) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONExporter(WithJSONFile(path))
	}
	return NewPrometheusExporter(path)
}
