package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for ragcloud.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Generation GenerationConfig `yaml:"generation"`
	Sync       SyncConfig       `yaml:"sync"`
	Upload     UploadConfig     `yaml:"upload"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig holds the local cache location.
type StoreConfig struct {
	Path string `yaml:"path"` // local cache mirroring the sync layer, "~" is expanded
}

// ChunkConfig holds chunking configuration.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "gemini", "hash"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Dimension int           `yaml:"dimension"` // only used by the hash provider
	Timeout   time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider     string        `yaml:"provider"` // "gemini", "openai"
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Instructions string        `yaml:"instructions"`
	PlainText    bool          `yaml:"plain_text"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SyncConfig selects the durable artifact store.
type SyncConfig struct {
	Backend string        `yaml:"backend"` // "dir", "bolt", "sqlite", "postgres", "memory"
	Path    string        `yaml:"path"`    // directory or database file
	DSN     string        `yaml:"dsn"`     // postgres connection string
	DSNEnv  string        `yaml:"dsn_env"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig holds upload validation limits.
type UploadConfig struct {
	MaxMB      int      `yaml:"max_mb"`
	Extensions []string `yaml:"extensions"`
	Includes   []string `yaml:"includes"`
	Excludes   []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "~/rag_cloud_data",
		},
		Chunk: ChunkConfig{
			Size:    800,
			Overlap: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Model:     "models/gemini-embedding-001",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv: "GEMINI_API_KEY",
			Dimension: 256,
			Timeout:   120 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopK:      8,
			CacheSize: 100,
			CacheTTL:  5 * time.Minute,
		},
		Generation: GenerationConfig{
			Provider:  "gemini",
			Model:     "models/gemini-2.0-flash",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv: "GEMINI_API_KEY",
			Instructions: "You are an architecture assistant. Answer technically and to the point. " +
				"Use the CONTEXT; mark anything you are unsure of as HYPOTHESIS. " +
				"Do not use Markdown formatting.",
			PlainText: true,
			Timeout:   60 * time.Second,
		},
		Sync: SyncConfig{
			Backend: "dir",
			Path:    "~/rag_cloud_remote",
			DSNEnv:  "RAGCLOUD_PG_DSN",
			Timeout: 30 * time.Second,
		},
		Upload: UploadConfig{
			MaxMB:      5,
			Extensions: []string{".txt"},
			Includes:   []string{"**/*.txt"},
			Excludes:   []string{"**/.git/**"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragcloud.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragcloud.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragcloud", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadEnv loads .env files from dir and from ~/.ragcloud. Variables already
// present in the environment win, and missing files are ignored.
func LoadEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".ragcloud", ".env"))
	}
}

// StoreDir returns the expanded local cache directory.
func (c *Config) StoreDir() string {
	return ExpandHome(c.Store.Path)
}

// EnsureStoreDir ensures the local cache directory exists.
func (c *Config) EnsureStoreDir() error {
	return os.MkdirAll(c.StoreDir(), 0755)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxMB) * 1024 * 1024
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !hasHomePrefix(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}
