// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
)

// GoogleClient implements schemas.LLMClient on top of the Gemini API SDK.
// It performs exactly one API call per Generate; retries are the caller's
// decision.
type GoogleClient struct {
	client     *genai.Client
	httpClient *http.Client
	config     config.LLMModelConfig
	logger     *zap.Logger
}

// NewGoogleClient initializes the SDK client for one model.
func NewGoogleClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google/Gemini API Key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	httpClient := &http.Client{Timeout: cfg.APITimeout}
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini SDK client: %w", err)
	}

	return &GoogleClient{
		client:     client,
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.Named("llm_client.gemini").With(zap.String("model", cfg.Model)),
	}, nil
}

// Generate sends the prompts to the model and returns the generated text.
func (c *GoogleClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.UserPrompt), c.buildConfig(req))
	if err != nil {
		c.logger.Warn("Gemini API call failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini API returned no candidates")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini API returned empty content (reason: %s)", resp.Candidates[0].FinishReason)
	}

	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if usage := resp.UsageMetadata; usage != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", usage.PromptTokenCount),
			zap.Int32("completion_tokens", usage.CandidatesTokenCount),
			zap.Int32("total_tokens", usage.TotalTokenCount),
		)
	}
	c.logger.Info("LLM generation complete (Gemini)", fields...)
	return text, nil
}

// buildConfig maps a request onto the SDK generation config. Request
// options take precedence over the model configuration when set.
func (c *GoogleClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	temperature := c.config.Temperature
	if req.Options.Temperature > 0 {
		temperature = float32(req.Options.Temperature)
	}
	topP := c.config.TopP
	if req.Options.TopP > 0 {
		topP = float32(req.Options.TopP)
	}
	topK := c.config.TopK
	if req.Options.TopK > 0 {
		topK = req.Options.TopK
	}
	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = req.Options.MaxTokens
	}

	gc := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(temperature),
		SafetySettings: c.safetySettings(),
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if topP > 0 {
		gc.TopP = genai.Ptr(topP)
	}
	if topK > 0 {
		gc.TopK = genai.Ptr(float32(topK))
	}
	if maxTokens > 0 {
		gc.MaxOutputTokens = int32(maxTokens)
	}
	return gc
}

// safetySettings returns the configured filters sorted by category.
func (c *GoogleClient) safetySettings() []*genai.SafetySetting {
	if len(c.config.SafetyFilters) == 0 {
		return nil
	}
	categories := make([]string, 0, len(c.config.SafetyFilters))
	for category := range c.config.SafetyFilters {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(category),
			Threshold: genai.HarmBlockThreshold(c.config.SafetyFilters[category]),
		})
	}
	return settings
}

// Close releases idle connections. The SDK client itself holds nothing
// that needs closing.
func (c *GoogleClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
