package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockLLMClient) Close() error {
	return m.Called().Error(0)
}

func TestCleanOutput(t *testing.T) {
	t.Parallel()
	const marker = "### FINAL ANSWER"

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain text is trimmed", "\n  1. First\n\n", "1. First"},
		{"preamble before marker is dropped", "Sure, here it is.\n### FINAL ANSWER\n\n1. First", "1. First"},
		{"last marker wins", "### FINAL ANSWER\ndraft\n### FINAL ANSWER\nfinal", "final"},
		{"reasoning lines are removed", "Thought: plan the answer\n1. First\n  thought: more\nbody", "1. First\nbody"},
		{"only reasoning is empty", "### FINAL ANSWER\nThought: nothing to say", ""},
		{"CRLF is normalized", "a\r\nb", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CleanOutput(tt.raw, marker))
		})
	}

	assert.Equal(t, "### FINAL ANSWER\nx", CleanOutput("### FINAL ANSWER\nx", ""), "an empty marker strips nothing")
}

func TestLLMGenerator(t *testing.T) {
	t.Parallel()
	opts := schemas.GenerationOptions{Temperature: 0.2, MaxTokens: 1024}
	prompt := Prompt{System: "sys", User: "user", Tier: schemas.TierFast}
	expectedReq := schemas.GenerationRequest{SystemPrompt: "sys", UserPrompt: "user", Tier: schemas.TierFast, Options: opts}
	ctx := context.Background()

	t.Run("cleans output", func(t *testing.T) {
		client := new(mockLLMClient)
		client.On("Generate", ctx, expectedReq).Return("thinking...\n### END\n\n# Report\n", nil).Once()

		text, err := NewLLMGenerator(client, "### END", opts).Generate(ctx, prompt)
		require.NoError(t, err)
		assert.Equal(t, "# Report", text)
		client.AssertExpectations(t)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		client := new(mockLLMClient)
		client.On("Generate", ctx, expectedReq).Return("### END\n  \n", nil).Once()

		_, err := NewLLMGenerator(client, "### END", opts).Generate(ctx, prompt)
		assert.ErrorIs(t, err, ErrEmptyOutput)
	})

	t.Run("client error is returned", func(t *testing.T) {
		client := new(mockLLMClient)
		boom := errors.New("quota exceeded")
		client.On("Generate", ctx, expectedReq).Return("", boom).Once()

		_, err := NewLLMGenerator(client, "### END", opts).Generate(ctx, prompt)
		assert.ErrorIs(t, err, boom)
	})
}

func TestGenerationError(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")

	chunkErr := &GenerationError{Chunk: 2, StartIndex: 7, EndIndex: 9, Err: cause}
	assert.Equal(t, "generation failed for findings 7-9: boom", chunkErr.Error())
	assert.ErrorIs(t, chunkErr, cause)

	introErr := &GenerationError{Chunk: schemas.IntroChunkRef, Err: cause}
	assert.Equal(t, "introduction generation failed: boom", introErr.Error())
}

func TestRatePacer(t *testing.T) {
	t.Parallel()

	t.Run("spaces calls by the delay", func(t *testing.T) {
		t.Parallel()
		p := NewRatePacer(40 * time.Millisecond)
		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, p.Wait(context.Background()))
		}
		// The first wait is immediate; the next two each wait one delay.
		assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	})

	t.Run("zero delay never blocks", func(t *testing.T) {
		t.Parallel()
		p := NewRatePacer(0)
		start := time.Now()
		for i := 0; i < 100; i++ {
			require.NoError(t, p.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancelled wait returns an error", func(t *testing.T) {
		t.Parallel()
		p := NewRatePacer(time.Hour)
		require.NoError(t, p.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, p.Wait(ctx))
	})
}
