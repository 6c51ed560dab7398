// Package generative wraps the remote language model used when no FAQ entry
// answers a customer message.
package generative

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned, possibly wrapped, whenever no answer could be
// generated. Callers substitute a fixed answer.
var ErrUnavailable = errors.New("generative service unavailable")

// ErrNotConfigured means no API key was supplied. It wraps ErrUnavailable.
var ErrNotConfigured = fmt.Errorf("%w: no API key configured", ErrUnavailable)

// Generator produces an answer for a single customer message. An empty
// answer with a nil error means the model replied with nothing useful.
type Generator interface {
	Generate(ctx context.Context, message string) (string, error)
}

// Config selects the model endpoint. Any OpenAI-compatible API works; the
// defaults target Groq.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTimeout     = 8 * time.Second
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
)

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}

// New returns a Disabled generator when cfg has no API key, and an
// OpenAIClient otherwise.
func New(cfg Config) Generator {
	if cfg.APIKey == "" {
		return Disabled{}
	}
	return NewOpenAIClient(cfg)
}

// Disabled never calls out and always reports ErrNotConfigured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
