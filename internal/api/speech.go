package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gotodobbs/assistant/internal/metrics"
	"github.com/gotodobbs/assistant/internal/tts"
)

// Synthesizer turns text into MP3 audio. *tts.Client satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

type speechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

func handleSpeech(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.SpeechLimit != nil && !deps.SpeechLimit.Allow(clientIP(r)) {
			metrics.SpeechRequests.WithLabelValues("rate_limited").Inc()
			w.Header().Set("Retry-After", "5")
			httpError(w, http.StatusTooManyRequests, "rate_limit_error", "Too many speech requests. Please slow down.")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Text must not be empty.")
			return
		}
		if utf8.RuneCountInString(req.Text) > tts.MaxTextLength {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text must be at most %d characters", tts.MaxTextLength)
			return
		}

		if deps.Speech == nil {
			metrics.SpeechRequests.WithLabelValues("not_configured").Inc()
			httpError(w, http.StatusInternalServerError, "configuration_error", "ELEVENLABS_API_KEY is not configured on the server.")
			return
		}

		audio, err := deps.Speech.Synthesize(r.Context(), req.Text, req.VoiceID)
		switch {
		case err == nil:
		case errors.Is(err, tts.ErrNotConfigured):
			metrics.SpeechRequests.WithLabelValues("not_configured").Inc()
			httpError(w, http.StatusInternalServerError, "configuration_error", "ELEVENLABS_API_KEY is not configured on the server.")
			return
		case errors.Is(err, tts.ErrNoVoice):
			metrics.SpeechRequests.WithLabelValues("not_configured").Inc()
			httpError(w, http.StatusInternalServerError, "configuration_error", "ELEVENLABS_VOICE_ID is not configured on the server.")
			return
		default:
			metrics.SpeechRequests.WithLabelValues("error").Inc()
			deps.Logger.Warn("speech synthesis failed", "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "Upstream TTS service failed.")
			return
		}

		metrics.SpeechRequests.WithLabelValues("ok").Inc()
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Disposition", `inline; filename="dobbs_tts_response.mp3"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
	}
}
