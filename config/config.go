// Package config loads the process configuration.
//
// Values are layered, later sources winning: built-in defaults, an optional
// YAML file, the env file (which never overrides variables already set) and
// finally the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/observability"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath  = "medteam.yaml"
	DefaultEnvFile     = "apikey.env"
	DefaultReportPath  = "Medical Reports/Medical Rerort - Michael Johnson - Panic Attack Disorder.txt"
	DefaultOutputPath  = "results/final_diagnosis.txt"
	DefaultServiceName = "medteam"
)

// Config is the complete process configuration.
type Config struct {
	Provider string `yaml:"provider" env:"MEDTEAM_PROVIDER"`
	Model    string `yaml:"model" env:"MEDTEAM_MODEL"`
	BaseURL  string `yaml:"base_url" env:"MEDTEAM_BASE_URL"`

	ReportPath    string        `yaml:"report_path" env:"MEDTEAM_REPORT_PATH"`
	OutputPath    string        `yaml:"output_path" env:"MEDTEAM_OUTPUT_PATH"`
	InvokeTimeout time.Duration `yaml:"invoke_timeout" env:"MEDTEAM_INVOKE_TIMEOUT"`
	EnvFile       string        `yaml:"env_file" env:"MEDTEAM_ENV_FILE"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	AWS       AWSConfig       `yaml:"aws"`

	// Secrets are only read from the environment.
	GoogleAPIKey string `yaml:"-" env:"GOOGLE_API_KEY"`
	OpenAIAPIKey string `yaml:"-" env:"OPENAI_API_KEY"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level        string `yaml:"level" env:"MEDTEAM_LOG_LEVEL"`
	Structured   bool   `yaml:"structured" env:"MEDTEAM_LOG_JSON"`
	TraceContext bool   `yaml:"trace_context" env:"MEDTEAM_LOG_TRACE_CONTEXT"`
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" env:"MEDTEAM_SERVICE_NAME"`
	OTLPEndpoint  string `yaml:"otlp_endpoint" env:"MEDTEAM_OTLP_ENDPOINT"`
	ConsoleTraces bool   `yaml:"console_traces" env:"MEDTEAM_TRACE_CONSOLE"`
	MetricsFile   string `yaml:"metrics_file" env:"MEDTEAM_METRICS_FILE"`
}

// TracingEnabled reports whether any trace exporter is configured.
func (t TelemetryConfig) TracingEnabled() bool {
	return t.OTLPEndpoint != "" || t.ConsoleTraces
}

// MetricsEnabled reports whether a metrics snapshot should be written.
func (t TelemetryConfig) MetricsEnabled() bool {
	return t.MetricsFile != ""
}

// AWSConfig holds the bedrock settings.
type AWSConfig struct {
	Region          string `yaml:"region" env:"AWS_REGION"`
	Profile         string `yaml:"profile" env:"AWS_PROFILE"`
	EndpointURL     string `yaml:"endpoint_url" env:"MEDTEAM_BEDROCK_ENDPOINT"`
	AccessKeyID     string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"-" env:"AWS_SESSION_TOKEN"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:      llm.ProviderGemini,
		ReportPath:    DefaultReportPath,
		OutputPath:    DefaultOutputPath,
		InvokeTimeout: 5 * time.Minute,
		EnvFile:       DefaultEnvFile,
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// pass "" to skip the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, agenkit.NewConfigurationError("file", fmt.Sprintf("failed to parse %s: %v", path, err))
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	envFile := cfg.EnvFile
	if v, ok := os.LookupEnv("MEDTEAM_ENV_FILE"); ok {
		envFile = v
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, agenkit.NewConfigurationError("env_file", fmt.Sprintf("failed to load %s: %v", envFile, err))
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, agenkit.NewConfigurationError("environment", err.Error())
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = llm.ProviderGemini
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later.
// The credential is checked by agent.NewFactory.
func (c *Config) Validate() error {
	if !llm.KnownProvider(c.Provider) {
		return agenkit.NewConfigurationError("provider", fmt.Sprintf("unknown provider %q", c.Provider))
	}
	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		return agenkit.NewConfigurationError("log.level", err.Error())
	}
	if c.InvokeTimeout < 0 {
		return agenkit.NewConfigurationError("invoke_timeout", "must not be negative")
	}
	if c.ReportPath == "" {
		return agenkit.NewConfigurationError("report_path", "must be set")
	}
	if c.OutputPath == "" {
		return agenkit.NewConfigurationError("output_path", "must be set")
	}
	return nil
}

// Credential returns the secret required by the selected provider, or "".
func (c *Config) Credential() string {
	switch c.Provider {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderBedrock:
		if c.AWS.AccessKeyID != "" {
			return c.AWS.AccessKeyID
		}
		return c.AWS.Profile
	default:
		return c.GoogleAPIKey
	}
}

// AgentConfig converts the configuration for agent.NewFactory.
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		Provider: llm.ProviderConfig{
			Provider: c.Provider,
			Model:    c.Model,
			APIKey:   c.Credential(),
			BaseURL:  c.BaseURL,
			Bedrock: llm.BedrockConfig{
				Region:          c.AWS.Region,
				Profile:         c.AWS.Profile,
				AccessKeyID:     c.AWS.AccessKeyID,
				SecretAccessKey: c.AWS.SecretAccessKey,
				SessionToken:    c.AWS.SessionToken,
				EndpointURL:     c.AWS.EndpointURL,
			},
		},
		Timeout: c.InvokeTimeout,
	}
}
