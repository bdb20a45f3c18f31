// Package narrative drives the generation collaborator over batches of
// findings and collects one fragment per chunk.
package narrative

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AgentProfile is the persona a generation call is made under.
type AgentProfile struct {
	Role      string
	Goal      string
	Backstory string
}

// SystemPrompt renders the profile as a system instruction.
func (p AgentProfile) SystemPrompt() string {
	var parts []string
	if p.Role != "" {
		parts = append(parts, fmt.Sprintf("You are a %s.", strings.TrimSpace(p.Role)))
	}
	if p.Goal != "" {
		parts = append(parts, "Your goal: "+strings.TrimSpace(p.Goal))
	}
	if p.Backstory != "" {
		parts = append(parts, strings.TrimSpace(p.Backstory))
	}
	return strings.Join(parts, "\n\n")
}

// Prompt is one fully rendered generation request.
type Prompt struct {
	System string
	User   string
	Tier   schemas.ModelTier
}

// PromptData is the data a task template is executed with. Chunk fields are
// zero for the introduction.
type PromptData struct {
	Target            string
	Date              string
	Marker            string
	FindingCount      int
	SeverityBreakdown string

	StartIndex int
	EndIndex   int
	Count      int
	// Findings is the chunk payload as indented JSON.
	Findings string
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// TaskTemplate pairs a profile with a parsed task template.
type TaskTemplate struct {
	name    string
	profile AgentProfile
	tier    schemas.ModelTier
	tmpl    *template.Template
}

// NewTaskTemplate parses source and executes it once against empty data,
// so references to unknown fields fail here rather than mid-report.
func NewTaskTemplate(name string, profile AgentProfile, source string, tier schemas.ModelTier) (*TaskTemplate, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s task template: %w", name, err)
	}
	if err := tmpl.Execute(&bytes.Buffer{}, PromptData{}); err != nil {
		return nil, fmt.Errorf("invalid %s task template: %w", name, err)
	}
	return &TaskTemplate{name: name, profile: profile, tier: tier, tmpl: tmpl}, nil
}

// Name returns the template name.
func (t *TaskTemplate) Name() string { return t.name }

// Render executes the template with data.
func (t *TaskTemplate) Render(data PromptData) (Prompt, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to render %s task: %w", t.name, err)
	}
	return Prompt{
		System: t.profile.SystemPrompt(),
		User:   buf.String(),
		Tier:   t.tier,
	}, nil
}

// payloadFinding is the per-finding shape sent to the generation
// collaborator. Index is the global 1-based position.
type payloadFinding struct {
	Index           int      `json:"index"`
	Title           string   `json:"title"`
	Severity        string   `json:"severity"`
	Description     string   `json:"description,omitempty"`
	Remediation     string   `json:"remediation,omitempty"`
	Locations       []string `json:"locations,omitempty"`
	ReferenceLinks  []string `json:"reference_links,omitempty"`
	OccurrenceCount int      `json:"occurrence_count"`
}

// EncodeChunk renders the chunk's findings as the JSON payload of a task.
func EncodeChunk(chunk schemas.Chunk) (string, error) {
	items := make([]payloadFinding, len(chunk.Findings))
	for i, f := range chunk.Findings {
		locs := make([]string, 0, len(f.Locations))
		for _, l := range f.Locations {
			locs = append(locs, l.String())
		}
		items[i] = payloadFinding{
			Index:           chunk.StartIndex + i,
			Title:           f.Title,
			Severity:        string(f.Severity),
			Description:     f.Description,
			Remediation:     f.Remediation,
			Locations:       locs,
			ReferenceLinks:  f.ReferenceLinks,
			OccurrenceCount: f.OccurrenceCount,
		}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode chunk %d: %w", chunk.Index, err)
	}
	return string(data), nil
}
