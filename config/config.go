// Package config loads pipeline configuration from defaults, an optional
// YAML file and MARA_-prefixed environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StageConfig holds per-stage generation parameters.
type StageConfig struct {
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// AnalysisConfig extends StageConfig with the iteration temperature
// schedule.
type AnalysisConfig struct {
	StageConfig    `mapstructure:",squash"`
	TempIncrement  float32 `mapstructure:"temp_increment"`
	MaxTemperature float32 `mapstructure:"max_temperature"`
}

// QuotaConfig parameterizes the request window and cooldown policy.
type QuotaConfig struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CooldownThreshold int           `mapstructure:"cooldown_threshold"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
}

// Config is the full runtime configuration.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`

	Quota     QuotaConfig    `mapstructure:"quota"`
	Designer  StageConfig    `mapstructure:"designer"`
	Engineer  StageConfig    `mapstructure:"engineer"`
	Analysis  AnalysisConfig `mapstructure:"analysis"`
	Synthesis StageConfig    `mapstructure:"synthesis"`
}

// depthPresets maps research depth names to iteration counts.
var depthPresets = map[string]int{
	"quick":         1,
	"balanced":      2,
	"deep":          3,
	"comprehensive": 4,
}

// Iterations resolves a depth preset name to its iteration count.
func Iterations(depth string) (int, error) {
	n, ok := depthPresets[strings.ToLower(strings.TrimSpace(depth))]
	if !ok {
		return 0, fmt.Errorf("config: unknown depth %q (quick, balanced, deep, comprehensive)", depth)
	}
	return n, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")

	v.SetDefault("quota.requests_per_minute", 60)
	v.SetDefault("quota.cooldown_threshold", 3)
	v.SetDefault("quota.cooldown", "300s")

	v.SetDefault("designer.temperature", 0.7)
	v.SetDefault("designer.max_tokens", 2048)

	v.SetDefault("engineer.temperature", 0.7)
	v.SetDefault("engineer.max_tokens", 4096)

	v.SetDefault("analysis.temperature", 0.7)
	v.SetDefault("analysis.temp_increment", 0.1)
	v.SetDefault("analysis.max_temperature", 0.9)
	v.SetDefault("analysis.max_tokens", 8192)

	v.SetDefault("synthesis.temperature", 0.5)
	v.SetDefault("synthesis.max_tokens", 8192)
}

// Load reads configuration. An explicit path is an error when unreadable; a
// missing ./mara.yaml is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else {
		v.SetConfigName("mara")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
