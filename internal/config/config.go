package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	LLM     LLMConfig
	FAQ     FAQConfig
	TTS     TTSConfig
	Cache   CacheConfig
	Leads   LeadsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	StaticDir string
	AppOrigin string
	// AdminToken guards the appointment read endpoints when set.
	AdminToken string
}

type StorageConfig struct {
	DataDir string
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// RateLimit is the sustained number of model calls per second; 0 disables the limit.
	RateLimit float64
	Burst     int
}

type FAQConfig struct {
	Threshold   float64
	CatalogPath string
}

type TTSConfig struct {
	APIKey  string
	VoiceID string
	BaseURL string
	// RateLimit is requests per second allowed from one client address.
	RateLimit float64
	Burst     int
}

type CacheConfig struct {
	Backend   string
	RedisAddr string
	TTL       time.Duration
}

type LeadsConfig struct {
	Enabled bool
	File    string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      5000,
			StaticDir: filepath.Join("dist", "public"),
			AppOrigin: "http://localhost:5173",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Timeout:     8 * time.Second,
			MaxTokens:   200,
			Temperature: 0.7,
			RateLimit:   2,
			Burst:       10,
		},
		FAQ: FAQConfig{
			Threshold: 0.3,
		},
		TTS: TTSConfig{
			BaseURL:   "https://api.elevenlabs.io/v1",
			RateLimit: 0.2,
			Burst:     5,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       time.Hour,
		},
		Leads: LeadsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LeadsFile returns the leads export path, defaulting to a file under the
// data directory.
func (c Config) LeadsFile() string {
	if c.Leads.File != "" {
		return c.Leads.File
	}
	return filepath.Join(c.Storage.DataDir, "leads", "appointments.json")
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/dobbs/config.json and then applies environment overrides.
//
// Environment variables (DOBBS_*) override file values. Secrets are read from
// the environment only. A missing model or speech key is not an error: the
// assistant answers from the FAQ and fixed replies, and speech returns 500.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.FAQ.Threshold < 0 {
		return fmt.Errorf("invalid config: faq.threshold must not be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid config: cache.backend %q (want memory, redis or none)", c.Cache.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log.level %q", c.Log.Level)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "dobbs-data"
		}
	}
	return filepath.Join(dir, "dobbs")
}
