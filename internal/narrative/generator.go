package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// ErrEmptyOutput is returned when the collaborator's text is empty once cleaned.
var ErrEmptyOutput = errors.New("generation returned no usable text")

// Generator produces narrative text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GenerationError records the failure of one chunk. It is local to the
// chunk: the orchestrator continues with the next one.
type GenerationError struct {
	// Chunk is the chunk index, or schemas.IntroChunkRef.
	Chunk      int
	StartIndex int
	EndIndex   int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Chunk == schemas.IntroChunkRef {
		return fmt.Sprintf("introduction generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed for findings %d-%d: %v", e.StartIndex, e.EndIndex, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// LLMGenerator adapts an LLMClient to Generator and cleans its output.
type LLMGenerator struct {
	client  schemas.LLMClient
	marker  string
	options schemas.GenerationOptions
}

// NewLLMGenerator creates a generator. marker is the final-answer marker the
// task templates ask for; an empty marker disables marker stripping.
func NewLLMGenerator(client schemas.LLMClient, marker string, opts schemas.GenerationOptions) *LLMGenerator {
	return &LLMGenerator{client: client, marker: marker, options: opts}
}

func (g *LLMGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	raw, err := g.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Tier:         p.Tier,
		Options:      g.options,
	})
	if err != nil {
		return "", err
	}
	text := CleanOutput(raw, g.marker)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

const reasoningPrefix = "thought:"

// CleanOutput drops everything up to and including the last occurrence of
// marker, removes reasoning lines and trims surrounding whitespace.
func CleanOutput(raw, marker string) string {
	if marker != "" {
		if idx := strings.LastIndex(raw, marker); idx >= 0 {
			raw = raw[idx+len(marker):]
		}
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), reasoningPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
