package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	legacy string // older variable name still honoured when env is unset
	secret bool
	apply  func(cfg *Config, v any)
	// extract returns the current value for display.
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "DOBBS_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "DOBBS_SERVER_PORT", legacy: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.static_dir", typ: kString, env: "DOBBS_SERVER_STATIC_DIR",
		apply:   func(cfg *Config, v any) { cfg.Server.StaticDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.StaticDir },
	},
	{
		key: "server.app_origin", typ: kString, env: "DOBBS_SERVER_APP_ORIGIN", legacy: "APP_ORIGIN",
		apply:   func(cfg *Config, v any) { cfg.Server.AppOrigin = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AppOrigin },
	},
	{
		key: "server.admin_token", typ: kString, env: "DOBBS_ADMIN_TOKEN",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "DOBBS_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "llm.base_url", typ: kString, env: "DOBBS_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "DOBBS_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.api_key", typ: kString, env: "DOBBS_LLM_API_KEY", legacy: "GROQ_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.timeout", typ: kDuration, env: "DOBBS_LLM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.LLM.Timeout },
	},
	{
		key: "llm.max_tokens", typ: kInt, env: "DOBBS_LLM_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxTokens },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "DOBBS_LLM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.rate_limit", typ: kFloat, env: "DOBBS_LLM_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.LLM.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.RateLimit },
	},
	{
		key: "llm.burst", typ: kInt, env: "DOBBS_LLM_BURST",
		apply:   func(cfg *Config, v any) { cfg.LLM.Burst = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.Burst },
	},
	{
		key: "faq.threshold", typ: kFloat, env: "DOBBS_FAQ_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.FAQ.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.FAQ.Threshold },
	},
	{
		key: "faq.catalog_path", typ: kString, env: "DOBBS_FAQ_CATALOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.FAQ.CatalogPath = v.(string) },
		extract: func(cfg Config) any { return cfg.FAQ.CatalogPath },
	},
	{
		key: "tts.api_key", typ: kString, env: "DOBBS_TTS_API_KEY", legacy: "ELEVENLABS_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.TTS.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.TTS.APIKey },
	},
	{
		key: "tts.voice_id", typ: kString, env: "DOBBS_TTS_VOICE_ID", legacy: "ELEVENLABS_VOICE_ID",
		apply:   func(cfg *Config, v any) { cfg.TTS.VoiceID = v.(string) },
		extract: func(cfg Config) any { return cfg.TTS.VoiceID },
	},
	{
		key: "tts.base_url", typ: kString, env: "DOBBS_TTS_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.TTS.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.TTS.BaseURL },
	},
	{
		key: "tts.rate_limit", typ: kFloat, env: "DOBBS_TTS_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.TTS.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.TTS.RateLimit },
	},
	{
		key: "tts.burst", typ: kInt, env: "DOBBS_TTS_BURST",
		apply:   func(cfg *Config, v any) { cfg.TTS.Burst = v.(int) },
		extract: func(cfg Config) any { return cfg.TTS.Burst },
	},
	{
		key: "cache.backend", typ: kString, env: "DOBBS_CACHE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Cache.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.Backend },
	},
	{
		key: "cache.redis_addr", typ: kString, env: "DOBBS_CACHE_REDIS_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Cache.RedisAddr = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.RedisAddr },
	},
	{
		key: "cache.ttl", typ: kDuration, env: "DOBBS_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Cache.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cache.TTL },
	},
	{
		key: "leads.enabled", typ: kBool, env: "DOBBS_LEADS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Leads.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Leads.Enabled },
	},
	{
		key: "leads.file", typ: kString, env: "DOBBS_LEADS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Leads.File = v.(string) },
		extract: func(cfg Config) any { return cfg.LeadsFile() },
	},
	{
		key: "log.level", typ: kString, env: "DOBBS_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts raw text into the key's value type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := s.env, os.Getenv(s.env)
		if raw == "" && s.legacy != "" {
			name, raw = s.legacy, os.Getenv(s.legacy)
		}
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", name, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
