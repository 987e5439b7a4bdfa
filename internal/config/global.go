// Package config handles archive paths and the global configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/pieces/config.yml.
type GlobalConfig struct {
	Root              string          `yaml:"root,omitempty"`
	ContentDir        string          `yaml:"content_dir,omitempty"`
	StorePath         string          `yaml:"store_path,omitempty"`
	MetadataDB        string          `yaml:"metadata_db,omitempty"`
	FragmentMinLength int             `yaml:"fragment_min_length,omitempty"`
	Embedding         EmbeddingConfig `yaml:"embedding,omitempty"`
	Log               LogConfig       `yaml:"log,omitempty"`
	Server            ServerConfig    `yaml:"server,omitempty"`
	LLM               LLMConfig       `yaml:"llm,omitempty"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider,omitempty"` // huggingface, openai, ollama
	Model             string  `yaml:"model,omitempty"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env,omitempty"`
	Dimensions        int     `yaml:"dimensions,omitempty"`
	BatchSize         int     `yaml:"batch_size,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	TimeoutSeconds    int     `yaml:"timeout_seconds,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // console or json
}

// ServerConfig configures the HTTP retrieval API.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	Mode string `yaml:"mode,omitempty"` // gin mode: release, debug or test
}

// LLMConfig configures the completion model used by "pieces ask".
type LLMConfig struct {
	Provider  string `yaml:"provider,omitempty"` // openai or anthropic
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "pieces"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Defaults applied to unset fields.
const (
	DefaultProvider          = "huggingface"
	DefaultModel             = "nvidia/NV-Embed-v2"
	DefaultBatchSize         = 16
	DefaultRequestsPerSecond = 5.0
	DefaultTimeoutSeconds    = 60
	DefaultServerAddr        = ":8080"
	DefaultServerMode        = "release"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
	DefaultLLMProvider       = "openai"
	DefaultLLMModel          = "gpt-4o-mini"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pieces/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file with defaults applied.
// Returns the defaults (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	var cfg GlobalConfig
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	if cfg.Root != "" {
		cfg.Root = ExpandPath(cfg.Root)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

func (c *GlobalConfig) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultProvider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultModelFor(c.Embedding.Provider)
	}
	if c.Embedding.APIKeyEnv == "" {
		c.Embedding.APIKeyEnv = defaultKeyEnvFor(c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = DefaultBatchSize
	}
	if c.Embedding.RequestsPerSecond <= 0 {
		c.Embedding.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultServerMode
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultLLMProvider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModelFor(c.LLM.Provider)
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaultLLMKeyEnvFor(c.LLM.Provider)
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case "openai":
		return "text-embedding-3-small"
	case "ollama":
		return "nomic-embed-text"
	}
	return DefaultModel
}

func defaultKeyEnvFor(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "ollama":
		return ""
	}
	return "HF_TOKEN"
}

func defaultLLMModelFor(provider string) string {
	if provider == "anthropic" {
		return "claude-3-5-sonnet-20240620"
	}
	return DefaultLLMModel
}

func defaultLLMKeyEnvFor(provider string) string {
	if provider == "anthropic" {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// GetConfigValue returns the environment variable if set, otherwise the config value.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}
