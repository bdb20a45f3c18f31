package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
)

// -- Test Cases: Factory Initialization (NewClient) --

func TestNewClient_Success_RouterInitialization(t *testing.T) {
	cfg := getValidRouterConfig()

	client, err := NewClient(context.Background(), cfg, setupTestLogger(t))
	require.NoError(t, err, "NewClient should succeed for a valid configuration")
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })

	router, ok := client.(*LLMRouter)
	require.True(t, ok, "The created client should be of type *LLMRouter")

	fastClient, okFast := router.clients[schemas.TierFast].(*GoogleClient)
	require.True(t, okFast, "Fast client should be an instance of *GoogleClient")
	assert.Equal(t, "gemini-flash", fastClient.config.Model)
	assert.Equal(t, "test-api-key", fastClient.config.APIKey)
	assert.NotNil(t, fastClient.client, "SDK client should be initialized")

	powerfulClient, okPowerful := router.clients[schemas.TierPowerful].(*GoogleClient)
	require.True(t, okPowerful, "Powerful client should be an instance of *GoogleClient")
	assert.Equal(t, "gemini-pro", powerfulClient.config.Model)
	assert.NotSame(t, fastClient, powerfulClient)
}

func TestNewClient_SharedModel(t *testing.T) {
	cfg := getValidRouterConfig()
	cfg.DefaultPowerfulModel = cfg.DefaultFastModel

	client, err := NewClient(context.Background(), cfg, setupTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	router := client.(*LLMRouter)
	assert.Same(t, router.clients[schemas.TierFast], router.clients[schemas.TierPowerful],
		"a single client serves both tiers when they name the same model")
}

func TestNewClient_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.LLMRouterConfig)
		expected []string
	}{
		{
			name:     "unsupported provider",
			mutate:   func(c *config.LLMRouterConfig) { c.Provider = "unsupported-provider-xyz" },
			expected: []string{"unknown or unsupported LLM provider configured: 'unsupported-provider-xyz'"},
		},
		{
			name:   "missing API key",
			mutate: func(c *config.LLMRouterConfig) { c.APIKey = "" },
			expected: []string{
				"failed to create fast tier client (gemini-flash):",
				"Google/Gemini API Key is required",
			},
		},
		{
			name:   "missing powerful model",
			mutate: func(c *config.LLMRouterConfig) { c.DefaultPowerfulModel = "" },
			expected: []string{
				"failed to create powerful tier client ():",
				"model name is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := getValidRouterConfig()
			tt.mutate(&cfg)

			client, err := NewClient(context.Background(), cfg, setupTestLogger(t))
			require.Error(t, err)
			assert.Nil(t, client)
			for _, msg := range tt.expected {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}
