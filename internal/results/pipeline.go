package results

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// PipelineConfig holds the tunables of the results pipeline.
type PipelineConfig struct {
	MaxLocations   int
	MaxDescription int
}

// Pipeline turns raw scanner records into the ranked canonical findings a
// report is written from: normalize, filter, group, rank.
type Pipeline struct {
	normalizer *Normalizer
	grouper    *Grouper
	logger     *zap.Logger
}

// NewPipeline creates a new results processing pipeline.
func NewPipeline(cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		normalizer: NewNormalizer(logger, cfg.MaxLocations, cfg.MaxDescription),
		grouper:    NewGrouper(cfg.MaxLocations),
		logger:     logger.Named("results_pipeline"),
	}
}

// Process normalizes, filters, groups and ranks raw findings. Bad records
// never abort the run; they are counted on diag. The only error returned is
// the context's.
func (p *Pipeline) Process(ctx context.Context, raws []schemas.RawFinding, filter SeverityFilter, diag *Diagnostics) ([]schemas.CanonicalFinding, error) {
	p.logger.Info("Starting results processing",
		zap.Int("raw_count", len(raws)),
		zap.Bool("filtered", filter.Active()),
	)

	canonical := make([]schemas.CanonicalFinding, 0, len(raws))
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, ok := p.normalizer.Normalize(i, raw, diag)
		if !ok {
			continue
		}
		if !filter.Allows(f.Severity) {
			diag.FilteredOut++
			continue
		}
		canonical = append(canonical, f)
	}

	grouped := p.grouper.Group(canonical, diag)
	ranked := Rank(grouped)

	counts := CountBySeverity(ranked)
	p.logger.Info("Results processing complete",
		zap.Int("accepted", diag.Accepted),
		zap.Int("malformed", diag.Malformed),
		zap.Int("unknown_severity", diag.UnknownTotal()),
		zap.Int("filtered_out", diag.FilteredOut),
		zap.Int("merged", diag.Merged),
		zap.Int("findings", len(ranked)),
		zap.Int("critical", counts[schemas.SeverityCritical]),
		zap.Int("high", counts[schemas.SeverityHigh]),
		zap.Int("medium", counts[schemas.SeverityMedium]),
		zap.Int("low", counts[schemas.SeverityLow]),
	)
	return ranked, nil
}
