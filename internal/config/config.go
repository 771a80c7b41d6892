package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Providers  Providers  `yaml:"providers"`
	Extraction Extraction `yaml:"extraction"`
	Search     Search     `yaml:"search"`
	Research   Research   `yaml:"research"`
	Dispatch   Dispatch   `yaml:"dispatch"`
	Output     Output     `yaml:"output"`
	Metrics    Metrics    `yaml:"metrics"`
	Logging    Logging    `yaml:"logging"`
}

type Providers struct {
	OpenAI     Provider `yaml:"openai"`
	Anthropic  Provider `yaml:"anthropic"`
	Gemini     Provider `yaml:"gemini"`
	Perplexity Provider `yaml:"perplexity"`
}

type Provider struct {
	Model          string `yaml:"model"`
	SearchModel    string `yaml:"search_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Extraction struct {
	Model string `yaml:"model"`
}

type Search struct {
	Google  GoogleSearch `yaml:"google"`
	Results int          `yaml:"results"`
	Cache   Cache        `yaml:"cache"`
}

type GoogleSearch struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	EngineIDEnv       string  `yaml:"engine_id_env"`
	Endpoint          string  `yaml:"endpoint"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type Cache struct {
	Address     string `yaml:"address"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	TTLHours    int    `yaml:"ttl_hours"`
}

type Research struct {
	ThrottleMs int `yaml:"throttle_ms"`
	QueryLimit int `yaml:"query_limit"`
}

type Dispatch struct {
	PerPlatformLimit int `yaml:"per_platform_limit"`
	MaxTokens        int `yaml:"max_tokens"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for aivis.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "aivis")
}

// DataDir returns the XDG data directory for aivis.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "aivis")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/aivis/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'aivis init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// LoadEnv loads the first .env file found next to the config file or in the
// working directory. Variables already set in the environment win. It
// returns the path loaded, or "" if none was found.
func LoadEnv(configPath string) (string, error) {
	var candidates []string
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	candidates = append(candidates, ".env")

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("loading %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Providers: Providers{
			OpenAI: Provider{
				Model:       "gpt-4o-mini",
				SearchModel: "gpt-5-mini",
				APIKeyEnv:   "OPENAI_API_KEY",
			},
			Anthropic: Provider{
				Model:     "claude-sonnet-4-5",
				APIKeyEnv: "ANTHROPIC_API_KEY",
			},
			Gemini: Provider{
				Model:     "gemini-2.5-flash",
				APIKeyEnv: "GEMINI_API_KEY",
			},
			Perplexity: Provider{
				Model:          "sonar",
				APIKeyEnv:      "PERPLEXITY_API_KEY",
				TimeoutSeconds: 60,
			},
		},
		Extraction: Extraction{Model: "gpt-4o-mini"},
		Search: Search{
			Google: GoogleSearch{
				APIKeyEnv:         "GOOGLE_SEARCH_API_KEY",
				EngineIDEnv:       "GOOGLE_SEARCH_ENGINE_ID",
				RequestsPerSecond: 1.5,
				Burst:             5,
			},
			Results: 5,
			Cache: Cache{
				PasswordEnv: "REDIS_PASSWORD",
				TTLHours:    24,
			},
		},
		Research: Research{ThrottleMs: 300, QueryLimit: 10},
		Dispatch: Dispatch{MaxTokens: 1500},
		Logging:  Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Research.ThrottleMs < 0 {
		errs = append(errs, fmt.Errorf("research.throttle_ms must not be negative"))
	}
	if c.Research.QueryLimit < 0 {
		errs = append(errs, fmt.Errorf("research.query_limit must not be negative"))
	}
	if c.Dispatch.PerPlatformLimit < 0 {
		errs = append(errs, fmt.Errorf("dispatch.per_platform_limit must not be negative"))
	}
	if c.Search.Google.RequestsPerSecond < 0 || c.Search.Google.Burst < 0 {
		errs = append(errs, fmt.Errorf("search.google rate limits must not be negative"))
	}
	if c.Search.Results < 1 || c.Search.Results > 10 {
		errs = append(errs, fmt.Errorf("search.results must be between 1 and 10, got %d", c.Search.Results))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// APIKey reads the provider's credential from the environment.
func (p Provider) APIKey() string {
	return env(p.APIKeyEnv)
}

// Timeout is the configured per-call timeout, or zero.
func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Credentials reads the Google search key and engine ID from the environment.
func (g GoogleSearch) Credentials() (apiKey, engineID string) {
	return env(g.APIKeyEnv), env(g.EngineIDEnv)
}

// Enabled reports whether a Redis address is configured.
func (c Cache) Enabled() bool {
	return strings.TrimSpace(c.Address) != ""
}

// Password reads the Redis password from the environment.
func (c Cache) Password() string {
	return env(c.PasswordEnv)
}

// TTL is the cache entry lifetime.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Throttle is the pause between research calls.
func (r Research) Throttle() time.Duration {
	return time.Duration(r.ThrottleMs) * time.Millisecond
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath is the scan database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "aivis.db")
}

func env(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
