package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const findingsByScanQuery = `
        SELECT vulnerability_name, severity, COALESCE(description, ''), COALESCE(recommendation, ''),
               COALESCE(target, ''), COALESCE(module, ''), COALESCE(cwe, '{}'), observed_at
        FROM findings
        WHERE scan_id = $1
        ORDER BY observed_at ASC;
    `

// Store reads scanner findings from a PostgreSQL results database. It is a
// read-only FindingSource; reports never write back.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// RawFindingsByScanID returns the findings of one scan as raw records, in
// observation order. Severity is passed through as stored; the normalizer
// owns translation.
func (s *Store) RawFindingsByScanID(ctx context.Context, scanID string) ([]schemas.RawFinding, error) {
	rows, err := s.pool.Query(ctx, findingsByScanQuery, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []schemas.RawFinding
	for rows.Next() {
		var (
			name, severity, description, recommendation, target, module string
			cwe                                                         []string
			observedAt                                                  time.Time
		)
		if err := rows.Scan(&name, &severity, &description, &recommendation, &target, &module, &cwe, &observedAt); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}

		findings = append(findings, schemas.RawFinding{
			"title":           name,
			"severity":        severity,
			"description":     description,
			"remediation":     recommendation,
			"url":             target,
			"module":          module,
			"reference_links": cweLinks(cwe),
			"observed_at":     observedAt.UTC().Format(time.RFC3339),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	s.log.Info("Loaded findings from database", zap.String("scan_id", scanID), zap.Int("count", len(findings)))
	return findings, nil
}

// ScanSource binds a Store to one scan ID as a schemas.FindingSource.
func (s *Store) ScanSource(scanID string) schemas.FindingSource {
	return scanSource{store: s, scanID: scanID}
}

type scanSource struct {
	store  *Store
	scanID string
}

func (src scanSource) RawFindings(ctx context.Context) ([]schemas.RawFinding, error) {
	return src.store.RawFindingsByScanID(ctx, src.scanID)
}

// cweLinks turns identifiers like "CWE-79" into MITRE definition links.
func cweLinks(ids []string) []any {
	links := make([]any, 0, len(ids))
	for _, id := range ids {
		num := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(id)), "CWE-")
		if num == "" {
			continue
		}
		links = append(links, fmt.Sprintf("https://cwe.mitre.org/data/definitions/%s.html", num))
	}
	return links
}
