// Package tts turns assistant answers into speech through the ElevenLabs
// text-to-speech API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultModel   = "eleven_multilingual_v2"

	// MaxTextLength is the longest text, in characters, accepted for synthesis.
	MaxTextLength = 2000

	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxAudioSize   = 20 << 20
)

var (
	ErrNotConfigured = errors.New("text-to-speech API key is not configured")
	ErrNoVoice       = errors.New("no text-to-speech voice configured")
)

// UpstreamError is returned when ElevenLabs answers with a non-200 status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("elevenlabs returned status %d: %s", e.Status, e.Body)
}

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Client talks to the ElevenLabs API.
type Client struct {
	apiKey       string
	defaultVoice string
	baseURL      string
	model        string
	settings     VoiceSettings
	httpClient   *http.Client
}

// NewClient creates a client. defaultVoice is used when a request names none.
func NewClient(apiKey, defaultVoice string) *Client {
	return &Client{
		apiKey:       apiKey,
		defaultVoice: defaultVoice,
		baseURL:      DefaultBaseURL,
		model:        DefaultModel,
		settings:     VoiceSettings{Stability: 0.55, SimilarityBoost: 0.75},
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, defaultVoice, baseURL string) *Client {
	c := NewClient(apiKey, defaultVoice)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Synthesize returns MP3 audio for text. An empty voiceID selects the
// default voice. HTTP 429 responses are retried with exponential backoff.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	voice := strings.TrimSpace(voiceID)
	if voice == "" {
		voice = c.defaultVoice
	}
	if voice == "" {
		return nil, ErrNoVoice
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.model, VoiceSettings: c.settings})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		audio, err := c.doSynthesize(ctx, voice, body)
		if err == nil {
			return audio, nil
		}

		if !isRateLimit(err) {
			return nil, err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

func (c *Client) doSynthesize(ctx context.Context, voice string, body []byte) ([]byte, error) {
	endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}
