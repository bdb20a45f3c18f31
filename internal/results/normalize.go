package results

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

const (
	// DefaultMaxLocations caps the locations kept per finding.
	DefaultMaxLocations = 15
	// DefaultMaxDescription caps descriptions, in runes.
	DefaultMaxDescription = 500
)

// severityTranslation maps the upper-cased vocabulary of the supported
// scanners onto the canonical levels.
var severityTranslation = map[string]schemas.Severity{
	"CRITICAL":      schemas.SeverityCritical,
	"ERROR":         schemas.SeverityHigh,
	"HIGH":          schemas.SeverityHigh,
	"WARNING":       schemas.SeverityMedium,
	"MEDIUM":        schemas.SeverityMedium,
	"INFO":          schemas.SeverityLow,
	"LOW":           schemas.SeverityLow,
	"INFORMATIONAL": schemas.SeverityLow,
}

// Field aliases, in lookup order. Dotted names walk nested objects.
var (
	titleFields       = []string{"title", "check_id", "alert", "name", "rule_id"}
	severityFields    = []string{"risk", "severity", "level", "extra.severity"}
	descriptionFields = []string{"description", "message", "desc", "extra.message"}
	remediationFields = []string{"remediation", "solution", "fix", "recommendation", "extra.fix"}
	referenceFields   = []string{"reference_links", "references", "refs", "extra.metadata.references"}
)

// TranslateSeverity maps a free-form severity value through the translation
// table. Values outside the table come back capitalized as a best-effort
// label, with ok reporting whether the label is canonical.
func TranslateSeverity(value string) (sev schemas.Severity, ok bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}
	if s, found := severityTranslation[strings.ToUpper(v)]; found {
		return s, true
	}
	label := schemas.Severity(capitalize(v))
	return label, label.IsCanonical()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Normalizer turns raw tool-specific records into canonical findings.
type Normalizer struct {
	logger         *zap.Logger
	maxLocations   int
	maxDescription int
}

// NewNormalizer creates a Normalizer. Non-positive limits select the defaults.
func NewNormalizer(logger *zap.Logger, maxLocations, maxDescription int) *Normalizer {
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	if maxDescription <= 0 {
		maxDescription = DefaultMaxDescription
	}
	return &Normalizer{
		logger:         logger.Named("normalizer"),
		maxLocations:   maxLocations,
		maxDescription: maxDescription,
	}
}

// Normalize converts one raw record. It returns false when the record is
// skipped, either because it is malformed or because its severity matches no
// canonical level; both outcomes are counted on diag.
func (n *Normalizer) Normalize(index int, raw schemas.RawFinding, diag *Diagnostics) (schemas.CanonicalFinding, bool) {
	diag.Total++

	if raw == nil {
		diag.recordMalformed(index, "empty record")
		n.logger.Debug("Skipping empty record", zap.Int("index", index))
		return schemas.CanonicalFinding{}, false
	}

	title := collapseSpace(firstString(raw, titleFields...))
	if title == "" {
		diag.recordMalformed(index, "missing title")
		n.logger.Debug("Skipping record without title", zap.Int("index", index))
		return schemas.CanonicalFinding{}, false
	}

	severity := schemas.SeverityLow
	if rawSeverity := firstString(raw, severityFields...); rawSeverity != "" {
		sev, ok := TranslateSeverity(rawSeverity)
		if !ok {
			diag.recordUnknown(string(sev))
			n.logger.Debug("Unrecognized severity",
				zap.Int("index", index),
				zap.String("title", title),
				zap.String("label", string(sev)),
			)
			return schemas.CanonicalFinding{}, false
		}
		severity = sev
	}

	diag.Accepted++
	return schemas.CanonicalFinding{
		Title:           title,
		Severity:        severity,
		Description:     truncateRunes(strings.TrimSpace(firstString(raw, descriptionFields...)), n.maxDescription),
		Remediation:     strings.TrimSpace(firstString(raw, remediationFields...)),
		Locations:       CanonicalLocations(extractLocations(raw), n.maxLocations),
		ReferenceLinks:  extractReferences(raw),
		OccurrenceCount: 1,
	}, true
}

// CanonicalLocations deduplicates, sorts and caps a location list.
func CanonicalLocations(locs []schemas.LocationRef, limit int) []schemas.LocationRef {
	if len(locs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(locs))
	out := make([]schemas.LocationRef, 0, len(locs))
	for _, l := range locs {
		if l.IsZero() {
			continue
		}
		key := l.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func extractLocations(raw schemas.RawFinding) []schemas.LocationRef {
	var locs []schemas.LocationRef

	if top := locationFromObject(raw); !top.IsZero() {
		locs = append(locs, top)
	}
	for _, key := range []string{"urls", "locations"} {
		v, ok := lookup(raw, key)
		if !ok {
			continue
		}
		for _, item := range asSlice(v) {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					locs = append(locs, schemas.LocationRef{URL: s})
				}
			case map[string]any:
				if l := locationFromObject(it); !l.IsZero() {
					locs = append(locs, l)
				}
			}
		}
	}
	return locs
}

func locationFromObject(obj map[string]any) schemas.LocationRef {
	return schemas.LocationRef{
		URL:    strings.TrimSpace(firstString(obj, "url", "uri")),
		Method: strings.TrimSpace(firstString(obj, "method")),
		Param:  strings.TrimSpace(firstString(obj, "param")),
		File:   strings.TrimSpace(firstString(obj, "file", "path")),
		Line:   firstInt(obj, "line", "start.line"),
	}
}

func extractReferences(raw schemas.RawFinding) []string {
	var candidates []string
	for _, key := range referenceFields {
		if v, ok := lookup(raw, key); ok {
			for _, item := range asSlice(v) {
				candidates = append(candidates, asString(item))
			}
		}
	}
	if ref := firstString(raw, "reference"); ref != "" {
		candidates = append(candidates, strings.Fields(ref)...)
	}
	if tags, ok := raw["tags"].(map[string]any); ok {
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			candidates = append(candidates, asString(tags[k]))
		}
	}

	var links []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "http://") && !strings.HasPrefix(c, "https://") {
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		links = append(links, c)
	}
	return links
}

// -- Raw record accessors --

// lookup resolves a possibly dotted key against nested objects.
func lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			// RawFinding is a named map type and does not match map[string]any.
			rf, isRaw := cur.(schemas.RawFinding)
			if !isRaw {
				return nil, false
			}
			m = rf
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := lookup(obj, k); ok {
			if s := asString(v); strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(obj map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := lookup(obj, k)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		}
	}
	return 0
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case string, map[string]any:
		return []any{s}
	default:
		return nil
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
