// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	LLM() LLMRouterConfig
	Ingest() IngestConfig
	Report() ReportConfig

	// Report Setters, driven by CLI flags.
	SetReportStyle(string)
	SetReportTarget(string)
	SetReportSeverities([]string)
	SetReportChunkSize(int)
	SetReportOutputFormat(string)
}

// Config holds the entire application configuration. Sections are exported
// for viper and read through the Interface getters.
type Config struct {
	LoggerCfg   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg DatabaseConfig  `mapstructure:"database" yaml:"database"`
	LLMCfg      LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
	IngestCfg   IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	ReportCfg   ReportConfig    `mapstructure:"report" yaml:"report"`
}

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) LLM() LLMRouterConfig     { return c.LLMCfg }
func (c *Config) Ingest() IngestConfig     { return c.IngestCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }

// Report Setters
func (c *Config) SetReportStyle(s string)        { c.ReportCfg.DefaultStyle = s }
func (c *Config) SetReportTarget(s string)       { c.ReportCfg.Target = s }
func (c *Config) SetReportSeverities(s []string) { c.ReportCfg.Severities = s }
func (c *Config) SetReportChunkSize(n int)       { c.ReportCfg.ChunkSize = n }
func (c *Config) SetReportOutputFormat(f string) { c.ReportCfg.OutputFormat = f }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the scanner results database connection details.
// It is only needed when findings are read by scan ID.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// IngestConfig tunes the report file loader.
type IngestConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMRouterConfig configures the narrative generation models. Both tiers
// share the provider credentials and sampling parameters.
type LLMRouterConfig struct {
	Provider             LLMProvider       `mapstructure:"provider" yaml:"provider"`
	APIKey               string            `mapstructure:"api_key" yaml:"api_key"`
	Endpoint             string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout           time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	DefaultFastModel     string            `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string            `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Temperature          float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP                 float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK                 int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens            int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters        map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider      LLMProvider
	Model         string
	APIKey        string
	Endpoint      string
	APITimeout    time.Duration
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	SafetyFilters map[string]string
}

// ModelConfig derives the configuration of one model from the router
// settings.
func (c LLMRouterConfig) ModelConfig(model string) LLMModelConfig {
	return LLMModelConfig{
		Provider:      c.Provider,
		Model:         model,
		APIKey:        c.APIKey,
		Endpoint:      c.Endpoint,
		APITimeout:    c.APITimeout,
		Temperature:   c.Temperature,
		TopP:          c.TopP,
		TopK:          c.TopK,
		MaxTokens:     c.MaxTokens,
		SafetyFilters: c.SafetyFilters,
	}
}

// ReportConfig controls report generation.
type ReportConfig struct {
	DefaultStyle string   `mapstructure:"default_style" yaml:"default_style"`
	Target       string   `mapstructure:"target" yaml:"target"`
	Severities   []string `mapstructure:"severities" yaml:"severities"`
	// ChunkSize overrides the style's chunk size when positive.
	ChunkSize         int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	PacingDelay       time.Duration `mapstructure:"pacing_delay" yaml:"pacing_delay"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" yaml:"generation_timeout"`
	MaxLocations      int           `mapstructure:"max_locations" yaml:"max_locations"`
	MaxDescription    int           `mapstructure:"max_description" yaml:"max_description"`

	PageBreakThreshold   float64 `mapstructure:"page_break_threshold" yaml:"page_break_threshold"`
	LabelMaxLength       int     `mapstructure:"label_max_length" yaml:"label_max_length"`
	LanguageTagMaxLength int     `mapstructure:"language_tag_max_length" yaml:"language_tag_max_length"`

	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	Author       string `mapstructure:"author" yaml:"author"`
	// StyleFile replaces the embedded style catalog when set.
	StyleFile string `mapstructure:"style_file" yaml:"style_file"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-report")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Ingest --
	v.SetDefault("ingest.concurrency", 4)

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.api_timeout", "2m")
	v.SetDefault("llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.default_powerful_model", "gemini-2.5-pro")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.top_k", 40)
	v.SetDefault("llm.max_tokens", 8192)

	// -- Report --
	v.SetDefault("report.default_style", "technical")
	v.SetDefault("report.severities", []string{})
	v.SetDefault("report.chunk_size", 0)
	v.SetDefault("report.pacing_delay", "1500ms")
	v.SetDefault("report.generation_timeout", "3m")
	v.SetDefault("report.max_locations", 15)
	v.SetDefault("report.max_description", 500)
	v.SetDefault("report.page_break_threshold", 40.0)
	v.SetDefault("report.label_max_length", 80)
	v.SetDefault("report.language_tag_max_length", 15)
	v.SetDefault("report.output_format", "pdf")
	v.SetDefault("report.author", "scalpel-report")
	v.SetDefault("report.style_file", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("database.url", "SCALPEL_DATABASE_URL")
	v.BindEnv("llm.api_key", "SCALPEL_LLM_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// The API key is checked when a client is built, so commands that never
// generate narrative run without one.
func (c *Config) Validate() error {
	if c.IngestCfg.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be a positive integer")
	}
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the LLM router settings.
func (l *LLMRouterConfig) Validate() error {
	if l.Provider != ProviderGemini {
		return fmt.Errorf("unsupported provider '%s'", l.Provider)
	}
	if l.DefaultFastModel == "" || l.DefaultPowerfulModel == "" {
		return fmt.Errorf("default_fast_model and default_powerful_model are required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	if l.APITimeout < 0 {
		return fmt.Errorf("api_timeout must not be negative")
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	if r.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if r.PacingDelay < 0 {
		return fmt.Errorf("pacing_delay must not be negative")
	}
	if r.MaxLocations <= 0 {
		return fmt.Errorf("max_locations must be a positive integer")
	}
	if r.MaxDescription <= 0 {
		return fmt.Errorf("max_description must be a positive integer")
	}
	if r.PageBreakThreshold < 0 {
		return fmt.Errorf("page_break_threshold must not be negative")
	}
	switch strings.ToLower(r.OutputFormat) {
	case "pdf", "markdown", "md":
	default:
		return fmt.Errorf("output_format must be one of pdf, markdown")
	}
	return nil
}
