// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter defines the interface for exporting canonical findings.
type Reporter interface {
	// Write adds findings to the export. It may be called more than once.
	Write(findings []schemas.CanonicalFinding) error
	// Close finalizes the export and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output; "~" is expanded.
func New(format, outputPath, toolVersion string, logger *zap.Logger) (Reporter, error) {
	switch format {
	case "sarif", "json":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		path, err := homedir.Expand(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		writer = f
	}

	if format == "json" {
		return NewJSONReporter(writer, logger), nil
	}
	// NewSARIFReporter takes ownership of the writer.
	return NewSARIFReporter(writer, toolVersion, logger), nil
}

// JSONReporter writes the findings as a single indented JSON array.
type JSONReporter struct {
	writer   io.WriteCloser
	logger   *zap.Logger
	findings []schemas.CanonicalFinding
}

// NewJSONReporter creates a reporter that buffers findings until Close.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{
		writer:   writer,
		logger:   logger.Named("json_reporter"),
		findings: []schemas.CanonicalFinding{},
	}
}

func (r *JSONReporter) Write(findings []schemas.CanonicalFinding) error {
	r.findings = append(r.findings, findings...)
	return nil
}

func (r *JSONReporter) Close() error {
	encodeErr := json.NewEncoder(r.writer).Encode(r.findings)
	closeErr := r.writer.Close()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Info("Successfully wrote JSON export", zap.Int("findings", len(r.findings)))
	return nil
}
