// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/internal/config"
	"github.com/xkilldash9x/scalpel-report/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand builds a fresh command tree wired to the production
// finding sources and generation client.
func NewRootCommand() *cobra.Command {
	return newRootCmd(defaultDependencies())
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command cancelled")
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

func newRootCmd(deps dependencies) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "scalpel-report",
		Short:         "Scalpel Report turns scanner findings into a narrated security report.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "scalpel-report"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "scalpel-report"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting scalpel-report", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.scalpel/config.yaml)")
	rootCmd.AddCommand(newGenerateCmd(deps), newVersionCmd())
	return rootCmd
}

// initializeConfig reads the config file, if any, and binds SCALPEL_*
// environment variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("invalid config path %q: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scalpel"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SCALPEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		// An explicit --config that does not exist surfaces as a path error.
		if cfgFile != "" && errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", cfgFile)
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root
// command's pre-run hook.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	if ctx == nil {
		return nil, errors.New("command context is not set")
	}
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}
