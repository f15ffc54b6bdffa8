// Package config provides configuration loading and validation for the CLI and HTTP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given and the file exists.
const DefaultPath = "newsbrief.yaml"

// LLM selects the generation and embedding backend.
type LLM struct {
	Provider      string  `yaml:"provider"`
	OllamaBaseURL string  `yaml:"ollama_base_url"`
	Model         string  `yaml:"model"`
	EmbedModel    string  `yaml:"embed_model"`
	GeminiAPIKey  string  `yaml:"gemini_api_key"`
	Temperature   float64 `yaml:"temperature"`
}

// Providers configures the article sources.
type Providers struct {
	SerpAPIKey    string `yaml:"serpapi_key"`
	FeedsFile     string `yaml:"feeds_file"` // empty uses the embedded catalog
	DefaultRegion string `yaml:"default_region"`
	DefaultLang   string `yaml:"default_lang"`
}

// Vector configures the per-user chunk index.
type Vector struct {
	Dir               string        `yaml:"dir"` // empty keeps the index in memory
	CollectionPrefix  string        `yaml:"collection_prefix"`
	BatchSize         int           `yaml:"batch_size"`
	RetentionMaxAge   time.Duration `yaml:"retention_max_age"`    // 0 keeps chunks forever
	RetentionMaxChunk int           `yaml:"retention_max_chunks"` // 0 means unbounded
}

// Chunking sets the chunk window.
type Chunking struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Ranking tunes the hybrid ranker.
type Ranking struct {
	HalfLifeHours float64 `yaml:"half_life_hours"`
}

// Safety configures query moderation.
type Safety struct {
	Enabled           bool    `yaml:"enabled"`
	ToxicityThreshold float64 `yaml:"toxicity_threshold"`
	BlockAdult        bool    `yaml:"block_adult"`
	BlockHate         bool    `yaml:"block_hate"`
	BlockViolence     bool    `yaml:"block_violence"`
	ScorerURL         string  `yaml:"scorer_url"`
}

// Extraction configures full-text article extraction.
type Extraction struct {
	UseBrowser bool `yaml:"use_browser"`
}

// Server configures the HTTP API.
type Server struct {
	Port int `yaml:"port"`
}

// Log configures structured logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Config is the full application configuration.
type Config struct {
	LLM         LLM        `yaml:"llm"`
	Providers   Providers  `yaml:"providers"`
	Vector      Vector     `yaml:"vector"`
	Chunking    Chunking   `yaml:"chunking"`
	Ranking     Ranking    `yaml:"ranking"`
	Safety      Safety     `yaml:"safety"`
	Extraction  Extraction `yaml:"extraction"`
	DatabaseURL string     `yaml:"database_url"` // empty keeps the retention ledger in memory
	Server      Server     `yaml:"server"`
	Log         Log        `yaml:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLM{
			Provider:      "ollama",
			OllamaBaseURL: "http://localhost:11434",
			Model:         "mistral:latest",
			EmbedModel:    "nomic-embed-text:latest",
			Temperature:   0.7,
		},
		Providers: Providers{
			DefaultRegion: "us",
			DefaultLang:   "en",
		},
		Vector: Vector{
			CollectionPrefix: "news_",
			BatchSize:        64,
		},
		Chunking: Chunking{Size: 900, Overlap: 150},
		Ranking:  Ranking{HalfLifeHours: 72},
		Safety: Safety{
			Enabled:           true,
			ToxicityThreshold: 0.75,
			BlockAdult:        true,
			BlockHate:         true,
			BlockViolence:     true,
		},
		Server: Server{Port: 8000},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML file over the defaults.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// (or DefaultPath when path is empty and that file exists), then the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. Unset or empty
// variables leave the current value.
func (c *Config) ApplyEnv() error {
	var errs []error

	envString("LLM_PROVIDER", &c.LLM.Provider)
	envString("OLLAMA_BASE_URL", &c.LLM.OllamaBaseURL)
	envString("LLM_MODEL", &c.LLM.Model)
	envString("EMBED_MODEL", &c.LLM.EmbedModel)
	envString("GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	errs = append(errs, envFloat("LLM_TEMPERATURE", &c.LLM.Temperature))

	envString("SERPAPI_KEY", &c.Providers.SerpAPIKey)
	envString("FEEDS_FILE", &c.Providers.FeedsFile)
	envString("DEFAULT_REGION", &c.Providers.DefaultRegion)
	envString("DEFAULT_LANG", &c.Providers.DefaultLang)

	envString("VECTOR_DB_DIR", &c.Vector.Dir)
	envString("CHROMA_COLLECTION_PREFIX", &c.Vector.CollectionPrefix)
	errs = append(errs,
		envInt("VECTOR_BATCH_SIZE", &c.Vector.BatchSize),
		envDuration("VECTOR_RETENTION_MAX_AGE", &c.Vector.RetentionMaxAge),
		envInt("VECTOR_RETENTION_MAX_CHUNKS", &c.Vector.RetentionMaxChunk),
		envInt("CHUNK_SIZE", &c.Chunking.Size),
		envInt("CHUNK_OVERLAP", &c.Chunking.Overlap),
		envFloat("RANK_HALF_LIFE_HOURS", &c.Ranking.HalfLifeHours),
		envBool("SAFETY_ENABLED", &c.Safety.Enabled),
		envFloat("TOXICITY_THRESHOLD", &c.Safety.ToxicityThreshold),
		envBool("BLOCK_ADULT", &c.Safety.BlockAdult),
		envBool("BLOCK_HATE", &c.Safety.BlockHate),
		envBool("BLOCK_VIOLENCE", &c.Safety.BlockViolence),
		envBool("USE_BROWSER", &c.Extraction.UseBrowser),
		envInt("PORT", &c.Server.Port),
	)
	envString("SAFETY_SCORER_URL", &c.Safety.ScorerURL)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Safety.ToxicityThreshold < 0 || c.Safety.ToxicityThreshold > 1 {
		return fmt.Errorf("config error: 'toxicity_threshold' must be between 0 and 1")
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("config error: chunk 'size' must be positive")
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("config error: chunk 'overlap' must be non-negative")
	}
	if c.Vector.BatchSize <= 0 {
		return fmt.Errorf("config error: 'batch_size' must be positive")
	}
	if c.Vector.RetentionMaxAge < 0 || c.Vector.RetentionMaxChunk < 0 {
		return fmt.Errorf("config error: retention limits must be non-negative")
	}
	if c.Ranking.HalfLifeHours <= 0 {
		return fmt.Errorf("config error: 'half_life_hours' must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: unknown log format %q", c.Log.Format)
	}

	// Validate file paths exist (if specified)
	if c.Providers.FeedsFile != "" {
		if _, err := os.Stat(c.Providers.FeedsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: feeds file not found: %s", c.Providers.FeedsFile)
		}
	}

	return nil
}

// HalfLife returns the ranking half-life as a duration.
func (c *Config) HalfLife() time.Duration {
	return time.Duration(c.Ranking.HalfLifeHours * float64(time.Hour))
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
