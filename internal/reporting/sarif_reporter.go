// internal/reporting/sarif_reporter.go
package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "Scalpel Report"
	ToolInfoURI  = "https://github.com/xkilldash9x/scalpel-report"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// ruleIDSanitizer collapses anything outside alphanumerics, underscore and dot into a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// findingIdentityKey names the partial fingerprint that lets SARIF consumers
// match a finding across reports.
const findingIdentityKey = "scalpelFindingIdentity/v1"

// RuleFingerprint identifies a rule by the grouping identity of a finding.
type RuleFingerprint string

// calculateFingerprint hashes the title and severity, the same identity the grouper merges on.
func calculateFingerprint(finding schemas.CanonicalFinding) RuleFingerprint {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s", strings.ToLower(strings.Join(strings.Fields(finding.Title), " ")), finding.Severity)
	return RuleFingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu                 sync.Mutex
	rulesByFingerprint map[RuleFingerprint]string
	// ruleIDUsage counts how often a base rule ID was claimed, for collision suffixes.
	ruleIDUsage map[string]int
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						// Empty slices, not nil, so the JSON carries [].
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:             writer,
		logger:             logger.Named("sarif_reporter"),
		log:                log,
		rulesByFingerprint: make(map[RuleFingerprint]string),
		ruleIDUsage:        make(map[string]int),
	}
}

// Write converts canonical findings into SARIF results and adds them to the log.
func (r *SARIFReporter) Write(findings []schemas.CanonicalFinding) error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	for _, finding := range findings {
		ruleID := r.ensureRule(finding)

		messageText := finding.Description
		if messageText == "" {
			messageText = finding.Title
		}

		run.Results = append(run.Results, &sarif.Result{
			RuleID:    ruleID,
			Message:   &sarif.Message{Text: pString(messageText)},
			Level:     mapSeverityToSARIFLevel(finding.Severity),
			Locations: createLocations(finding),
			PartialFingerprints: map[string]string{
				findingIdentityKey: string(calculateFingerprint(finding)),
			},
			Properties: &sarif.PropertyBag{
				"occurrenceCount": finding.OccurrenceCount,
				"severity":        string(finding.Severity),
			},
		})
	}

	if len(findings) > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.Int("findings_count", len(findings)),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote SARIF report",
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// sanitizeRuleName creates a standardized base name for the rule ID.
func sanitizeRuleName(name string) string {
	if name == "" {
		return "UNNAMED-FINDING"
	}
	sanitized := strings.ToUpper(name)
	sanitized = ruleIDSanitizer.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return "UNKNOWN-FINDING"
	}
	return sanitized
}

// ensureRule ensures a rule definition exists for the finding and returns its ID.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(finding schemas.CanonicalFinding) string {
	fingerprint := calculateFingerprint(finding)
	if ruleID, exists := r.rulesByFingerprint[fingerprint]; exists {
		return ruleID
	}

	baseRuleID := "SCALPEL-" + sanitizeRuleName(finding.Title)
	usageCount := r.ruleIDUsage[baseRuleID]
	r.ruleIDUsage[baseRuleID] = usageCount + 1

	finalRuleID := baseRuleID
	if usageCount > 0 {
		// Same title at another severity.
		finalRuleID = fmt.Sprintf("%s-%d", baseRuleID, usageCount)
		r.logger.Debug("Rule ID collision detected, generated new ID with suffix",
			zap.String("base_id", baseRuleID),
			zap.String("final_id", finalRuleID),
		)
	}

	markdownHelp := fmt.Sprintf("**Finding:** %s\n\n**Severity:** %s\n\n**Description:**\n%s\n\n**Remediation:**\n%s",
		finding.Title, finding.Severity, finding.Description, finding.Remediation)

	rule := &sarif.ReportingDescriptor{
		ID:               finalRuleID,
		Name:             pString(finding.Title),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(finding.Title)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(finding.Description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(finding.Remediation),
			Markdown: pString(markdownHelp),
		},
		Properties: &sarif.PropertyBag{
			"tags":     []string{"security", "scalpel"},
			"severity": string(finding.Severity),
		},
	}
	if len(finding.ReferenceLinks) > 0 {
		rule.HelpURI = pString(finding.ReferenceLinks[0])
	}

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, rule)
	r.rulesByFingerprint[fingerprint] = finalRuleID
	return finalRuleID
}

// createLocations maps each LocationRef to one SARIF location. Source
// locations carry a region; web locations carry the request in the message.
func createLocations(finding schemas.CanonicalFinding) []*sarif.Location {
	locations := make([]*sarif.Location, 0, len(finding.Locations))
	for _, ref := range finding.Locations {
		if ref.IsZero() {
			continue
		}
		loc := &sarif.Location{
			PhysicalLocation: &sarif.PhysicalLocation{},
			Message:          &sarif.Message{Text: pString(ref.String())},
		}
		if ref.URL != "" {
			loc.PhysicalLocation.ArtifactLocation = &sarif.ArtifactLocation{URI: pString(ref.URL)}
		} else {
			loc.PhysicalLocation.ArtifactLocation = &sarif.ArtifactLocation{URI: pString(ref.File)}
			if ref.Line > 0 {
				loc.PhysicalLocation.Region = &sarif.Region{StartLine: ref.Line}
			}
		}
		locations = append(locations, loc)
	}
	return locations
}

// mapSeverityToSARIFLevel converts a canonical severity to the SARIF level.
func mapSeverityToSARIFLevel(severity schemas.Severity) sarif.Level {
	switch severity {
	case schemas.SeverityCritical, schemas.SeverityHigh:
		return sarif.LevelError
	case schemas.SeverityMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
