package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete batch configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data/raw"`
	CacheFile    string `yaml:"cache_file" envconfig:"CACHE_FILE" default:"data/prepared.csv"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	RegistryFile string `yaml:"registry_file" envconfig:"REGISTRY_FILE"`
}

// PipelineConfig contains the tunable thresholds of the preparation
// chain.
type PipelineConfig struct {
	Neighbors   int     `yaml:"neighbors" envconfig:"NEIGHBORS" default:"5" validate:"min=1"`
	MinAnswered int     `yaml:"min_answered" envconfig:"MIN_ANSWERED" default:"7" validate:"min=1"`
	ScoreCutoff float64 `yaml:"score_cutoff" envconfig:"SCORE_CUTOFF" default:"10"`
	AdultAge    float64 `yaml:"adult_age" envconfig:"ADULT_AGE" default:"18" validate:"min=0"`
	CRPLimit    float64 `yaml:"crp_limit" envconfig:"CRP_LIMIT" default:"10"`
	WBCLimit    float64 `yaml:"wbc_limit" envconfig:"WBC_LIMIT" default:"11"`
	MinCellSize int     `yaml:"min_cell_size" envconfig:"MIN_CELL_SIZE" default:"30" validate:"min=1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/prepare.log"`
}

// TracingConfig controls the OpenTelemetry stage spans.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Service string `yaml:"service" envconfig:"SERVICE" default:"surveyprep"`
}

// Load reads configuration from environment variables and defaults,
// then overlays values from the YAML file when configFile is non-empty
// and exists. The result is validated before it is returned.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SVY", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for plausibility.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("logging output must be stdout, file, or both; got %q", c.Logging.Output)
	}
	return nil
}
