// File: cmd/generate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
	"github.com/xkilldash9x/scalpel-report/internal/ingest"
	"github.com/xkilldash9x/scalpel-report/internal/llmclient"
	"github.com/xkilldash9x/scalpel-report/internal/observability"
	"github.com/xkilldash9x/scalpel-report/internal/report"
	"github.com/xkilldash9x/scalpel-report/internal/reporting"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/render"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/style"
	"github.com/xkilldash9x/scalpel-report/internal/store"
)

// sourceProvider creates the finding source of a run. This abstraction lets
// tests inject an in-memory source instead of files or a live database.
type sourceProvider interface {
	// Create returns the source and a cleanup function, which may be nil.
	Create(ctx context.Context, cfg config.Interface, opts generateOptions) (schemas.FindingSource, func(), error)
}

// clientFactory builds the generation client from the LLM configuration.
type clientFactory func(ctx context.Context, cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error)

type dependencies struct {
	sources   sourceProvider
	newClient clientFactory
}

func defaultDependencies() dependencies {
	return dependencies{
		sources:   defaultSourceProvider{},
		newClient: llmclient.NewClient,
	}
}

// defaultSourceProvider reads findings from scanner output files, or from
// the results database when a scan ID is given.
type defaultSourceProvider struct{}

func (defaultSourceProvider) Create(ctx context.Context, cfg config.Interface, opts generateOptions) (schemas.FindingSource, func(), error) {
	logger := observability.GetLogger()
	if opts.scanID == "" {
		return ingest.NewFileSource(opts.files, logger).WithConcurrency(cfg.Ingest().Concurrency), nil, nil
	}

	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (SCALPEL_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed")
	}
	return st.ScanSource(opts.scanID), cleanup, nil
}

type generateOptions struct {
	files      []string
	scanID     string
	target     string
	style      string
	severities []string
	chunkSize  int
	format     string
	output     string
	sarifPath  string
}

// newGenerateCmd creates and configures the `generate` command.
func newGenerateCmd(deps dependencies) *cobra.Command {
	var opts generateOptions

	generateCmd := &cobra.Command{
		Use:   "generate [files...]",
		Short: "Generate a narrated report from scanner findings",
		Long: `Reads raw findings from scanner output files (generic JSON, Semgrep JSON,
ZAP JSON or XML) or from the results database by scan ID, normalizes, groups
and ranks them, narrates them chunk by chunk and renders the report.`,
		Args: func(cmd *cobra.Command, args []string) error {
			scanID, _ := cmd.Flags().GetString("scan-id")
			switch {
			case scanID != "" && len(args) > 0:
				return errors.New("findings files and --scan-id are mutually exclusive")
			case scanID == "" && len(args) == 0:
				return errors.New("at least one findings file or --scan-id is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			opts.files = args
			applyFlagOverrides(cmd, cfg, opts)

			return runGenerate(ctx, observability.GetLogger(), cfg, opts, deps, cmd.OutOrStdout())
		},
	}

	flags := generateCmd.Flags()
	flags.StringVar(&opts.scanID, "scan-id", "", "Read findings of this scan from the results database")
	flags.StringVar(&opts.target, "target", "", "Name of the audited system, printed on the cover page")
	flags.StringVar(&opts.style, "style", "", "Report style (default from config, e.g. technical, managerial)")
	flags.StringArrayVar(&opts.severities, "severity", nil, "Keep only findings of this severity (repeatable)")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "Findings per generation call (default from the style)")
	flags.StringVar(&opts.format, "format", "", "Output format: pdf or markdown (default from config)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file path (default scalpel-report.<ext>)")
	flags.StringVar(&opts.sarifPath, "sarif", "", "Also write the final findings as SARIF 2.1.0 to this path")

	return generateCmd
}

// applyFlagOverrides copies explicitly set flags onto the configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface, opts generateOptions) {
	flags := cmd.Flags()
	if flags.Changed("style") {
		cfg.SetReportStyle(opts.style)
	}
	if flags.Changed("target") {
		cfg.SetReportTarget(opts.target)
	}
	if flags.Changed("severity") {
		cfg.SetReportSeverities(opts.severities)
	}
	if flags.Changed("chunk-size") {
		cfg.SetReportChunkSize(opts.chunkSize)
	}
	if flags.Changed("format") {
		cfg.SetReportOutputFormat(opts.format)
	}
}

// runGenerate contains the core, testable logic of the generate command.
func runGenerate(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts generateOptions, deps dependencies, out io.Writer) error {
	reportCfg := cfg.Report()

	catalog, err := loadCatalog(reportCfg.StyleFile)
	if err != nil {
		return err
	}

	source, cleanup, err := deps.sources.Create(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize finding source: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	client, err := deps.newClient(ctx, cfg.LLM(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close LLM client cleanly", zap.Error(err))
		}
	}()

	svc := report.NewService(reportCfg, catalog, client, logger)
	res, genErr := svc.Generate(ctx, report.Request{
		Source:     source,
		Target:     reportCfg.Target,
		Style:      reportCfg.DefaultStyle,
		Severities: reportCfg.Severities,
		ChunkSize:  reportCfg.ChunkSize,
		Format:     reportCfg.OutputFormat,
	})

	var outputPath string
	if genErr == nil && res.Artifact != nil {
		outputPath, err = writeArtifact(res.Artifact, opts.output, reportCfg.OutputFormat)
		if err != nil {
			return err
		}
		logger.Info("Report written", zap.String("path", outputPath), zap.Int("bytes", len(res.Artifact)))
	}
	if genErr == nil && res.Status != report.StatusEmpty && opts.sarifPath != "" {
		if err := writeSARIF(logger, res.Findings, opts.sarifPath); err != nil {
			return err
		}
	}

	printSummary(out, res, outputPath)
	return genErr
}

func loadCatalog(path string) (*style.Catalog, error) {
	if path == "" {
		return style.Default()
	}
	catalog, err := style.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load style catalog: %w", err)
	}
	return catalog, nil
}

// writeArtifact writes the rendered document and returns the final path.
func writeArtifact(artifact []byte, output, format string) (string, error) {
	if output == "" {
		output = "scalpel-report" + render.Extension(format)
	}
	path, err := homedir.Expand(output)
	if err != nil {
		return "", fmt.Errorf("invalid output path %q: %w", output, err)
	}
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// writeSARIF exports the final findings through the reporting module.
func writeSARIF(logger *zap.Logger, findings []schemas.CanonicalFinding, path string) error {
	reporter, err := reporting.New("sarif", path, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize SARIF reporter: %w", err)
	}
	if err := reporter.Write(findings); err != nil {
		reporter.Close()
		return fmt.Errorf("failed to write SARIF report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize SARIF report: %w", err)
	}
	logger.Info("SARIF report written", zap.String("path", path), zap.Int("findings", len(findings)))
	return nil
}

func printSummary(out io.Writer, res *report.Result, outputPath string) {
	if res == nil {
		return
	}

	var headline *color.Color
	var text string
	switch res.Status {
	case report.StatusSuccess:
		headline, text = color.New(color.FgGreen, color.Bold), "Report generated"
	case report.StatusPartial:
		headline, text = color.New(color.FgYellow, color.Bold), "Report generated with gaps"
	case report.StatusEmpty:
		headline, text = color.New(color.FgCyan, color.Bold), "Nothing to report"
	default:
		headline, text = color.New(color.FgRed, color.Bold), "Report generation failed"
	}
	headline.Fprintf(out, "%s [%s]\n", text, res.Status)

	fmt.Fprintln(out, indent(res.Summary.String()))
	if outputPath != "" {
		fmt.Fprintf(out, "  Output:   %s\n", outputPath)
	}
	if res.Reason != nil {
		fmt.Fprintf(out, "  Reason:   %v\n", res.Reason)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
