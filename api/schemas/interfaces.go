package schemas

import (
	"context"
	"io"
)

// -- Finding Source Interface --

// FindingSource supplies the raw findings of one scan. Implementations exist
// for scanner report files and for a scanner results database.
type FindingSource interface {
	// RawFindings returns every raw record the source holds for the scan,
	// in the order the source produced them.
	RawFindings(ctx context.Context) ([]RawFinding, error)
}

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, potentially less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, potentially slower model.
)

// GenerationOptions provides detailed parameters to control the text generation
// process of the LLM, such as creativity (temperature).
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	TopP        float64 `json:"top_p"`       // Nucleus sampling parameter.
	TopK        int     `json:"top_k"`       // Top-k sampling parameter.
	MaxTokens   int     `json:"max_tokens"`  // Upper bound on generated tokens. Zero leaves the model default.
}

// GenerationRequest encapsulates a complete request to the LLM, including the
// system and user prompts, the desired model tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // The agent profile: persona and rules.
	UserPrompt   string            `json:"user_prompt"`   // The task, including the findings payload.
	Tier         ModelTier         `json:"tier"`          // The desired model tier (fast or powerful).
	Options      GenerationOptions `json:"options"`       // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider (e.g., Gemini).
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client (e.g., network connections, SDK resources).
	Close() error
}

// -- Rendering Interface --

// Renderer is the document rendering collaborator. Node methods never fail
// individually; engines latch the first error and return it from Finalize.
type Renderer interface {
	AddHeading(level int, text string)
	AddParagraph(runs ...TextRun)
	AddBulletItem(label, text string)
	AddColoredLabel(text string, color ColorClass)
	AddCodeBlock(language, code string)
	PageBreak()
	// CursorY is the vertical position on the current page, in the
	// renderer's own unit.
	CursorY() float64
	// Finalize writes the finished artifact to w.
	Finalize(w io.Writer) error
}

// CoverPage describes the title page of a report.
type CoverPage struct {
	Title    string
	Subtitle string
	Target   string
	Date     string
}

// CoverRenderer is implemented by renderers able to lay out a title page.
type CoverRenderer interface {
	AddCover(cover CoverPage)
}
