// File: cmd/root_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-report/internal/config"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, defaultDependencies(), "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "scalpel-report version "+Version)
}

func TestVersionCmd(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, defaultDependencies(), "version")

	require.NoError(t, err)
	assert.Contains(t, out, "scalpel-report "+Version+" (go")
}

func TestRootCmd_NoArgs(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, defaultDependencies())

	require.NoError(t, err)
	assert.Contains(t, out, "Scalpel Report turns scanner findings into a narrated security report.")
	assert.Contains(t, out, "generate")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	resetForTest(t)
	t.Setenv("SCALPEL_REPORT_MAX_LOCATIONS", "0")

	_, err := executeCommand(t, defaultDependencies(), "generate", "findings.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
	assert.Contains(t, err.Error(), "max_locations must be a positive integer")
}

func TestInitializeConfig(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		require.NoError(t, os.WriteFile(path, []byte("report:\n  default_style: managerial\n  chunk_size: 4\n"), 0o644))

		v := viper.New()
		config.SetDefaults(v)
		require.NoError(t, initializeConfig(v, path))

		cfg, err := config.NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "managerial", cfg.Report().DefaultStyle)
		assert.Equal(t, 4, cfg.Report().ChunkSize)
		assert.Equal(t, 15, cfg.Report().MaxLocations, "defaults fill unset keys")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		v := viper.New()
		err := initializeConfig(v, filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("no config file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		v := viper.New()
		config.SetDefaults(v)
		assert.NoError(t, initializeConfig(v, ""))
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SCALPEL_REPORT_DEFAULT_STYLE", "managerial")
		t.Chdir(t.TempDir())
		v := viper.New()
		config.SetDefaults(v)
		require.NoError(t, initializeConfig(v, ""))

		cfg, err := config.NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "managerial", cfg.Report().DefaultStyle)
	})
}

func TestGetConfigFromContext(t *testing.T) {
	cfg := config.NewDefaultConfig()

	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	_, err = getConfigFromContext(context.Background())
	assert.EqualError(t, err, "configuration not found in context")
}
