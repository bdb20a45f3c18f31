// Package ingest decodes scanner output files into raw finding records.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultConcurrency bounds how many input files are read and decoded at once.
const DefaultConcurrency = 4

// Format identifies the layout of a scanner output file.
type Format string

const (
	FormatGeneric Format = "generic"
	FormatSemgrep Format = "semgrep"
	FormatZAPJSON Format = "zap-json"
	FormatZAPXML  Format = "zap-xml"
)

// DetectFormat guesses the layout of data. name is only used for its extension.
func DetectFormat(name string, data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if strings.EqualFold(filepath.Ext(name), ".xml") || bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatZAPXML
	}
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return FormatGeneric
	}
	var probe struct {
		Site    []jsoniter.RawMessage `json:"site"`
		Results []struct {
			CheckID string `json:"check_id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return FormatGeneric
	}
	if len(probe.Site) > 0 {
		return FormatZAPJSON
	}
	if len(probe.Results) > 0 && probe.Results[0].CheckID != "" {
		return FormatSemgrep
	}
	return FormatGeneric
}

// Decode detects the format of data and decodes it.
func Decode(name string, data []byte) ([]schemas.RawFinding, error) {
	switch DetectFormat(name, data) {
	case FormatZAPXML:
		return DecodeZAPXML(data)
	case FormatZAPJSON:
		return DecodeZAPJSON(data)
	case FormatSemgrep:
		return DecodeSemgrep(data)
	default:
		return DecodeGeneric(data)
	}
}

// envelopeKeys are the array fields a generic report object may carry.
var envelopeKeys = []string{"vulnerabilities", "findings", "alerts", "results"}

// DecodeGeneric accepts a JSON array of records, or an object holding one
// under a well-known key. Non-object array elements are kept as nil records
// so the normalizer can count them as malformed.
func DecodeGeneric(data []byte) ([]schemas.RawFinding, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode findings JSON: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		found := false
		for _, key := range envelopeKeys {
			if arr, ok := v[key].([]any); ok {
				items, found = arr, true
				break
			}
		}
		if !found {
			// A lone record.
			items = []any{v}
		}
	default:
		return nil, fmt.Errorf("unsupported findings document of type %T", doc)
	}

	out := make([]schemas.RawFinding, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		out = append(out, schemas.RawFinding(obj))
	}
	return out, nil
}

// FileSource reads raw findings from scanner output files.
type FileSource struct {
	paths       []string
	concurrency int
	logger      *zap.Logger
}

// NewFileSource creates a source over the given paths. "~" is expanded.
func NewFileSource(paths []string, logger *zap.Logger) *FileSource {
	return &FileSource{paths: paths, concurrency: DefaultConcurrency, logger: logger.Named("ingest")}
}

// WithConcurrency sets how many files are decoded at once. Values below one
// keep the default.
func (s *FileSource) WithConcurrency(n int) *FileSource {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// RawFindings implements schemas.FindingSource.
func (s *FileSource) RawFindings(ctx context.Context) ([]schemas.RawFinding, error) {
	return loadFiles(ctx, s.paths, s.concurrency, s.logger)
}

// LoadFiles reads and decodes files concurrently. Records keep the order of
// paths, then the order within each file. Any failing file fails the load.
func LoadFiles(ctx context.Context, paths []string, logger *zap.Logger) ([]schemas.RawFinding, error) {
	return loadFiles(ctx, paths, DefaultConcurrency, logger)
}

func loadFiles(ctx context.Context, paths []string, limit int, logger *zap.Logger) ([]schemas.RawFinding, error) {
	perFile := make([][]schemas.RawFinding, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := homedir.Expand(p)
			if err != nil {
				return fmt.Errorf("failed to expand path %s: %w", p, err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			records, err := Decode(path, data)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", path, err)
			}
			logger.Debug("Decoded findings file",
				zap.String("path", path),
				zap.String("format", string(DetectFormat(path, data))),
				zap.Int("records", len(records)),
			)
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []schemas.RawFinding
	for _, records := range perFile {
		all = append(all, records...)
	}
	logger.Info("Loaded raw findings", zap.Int("files", len(paths)), zap.Int("records", len(all)))
	return all, nil
}
