package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gotodobbs/assistant/internal/intent"
	"github.com/gotodobbs/assistant/internal/router"
)

const (
	maxMessageLength = 2000
	apologyAnswer    = "I'm having trouble right now. Please try again in a moment."
)

type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse carries both the current and the legacy field names so
// older widgets keep working.
type chatResponse struct {
	Text               string         `json:"text"`
	ShouldSpeak        bool           `json:"should_speak"`
	Intent             *string        `json:"intent"`
	Metadata           map[string]any `json:"metadata"`
	Answer             string         `json:"answer"`
	IsSchedulingIntent bool           `json:"isSchedulingIntent"`
}

func newChatResponse(resp router.Response) chatResponse {
	meta := map[string]any{"source": string(resp.Source)}
	if resp.Question != "" {
		meta["faq_question"] = resp.Question
	}
	return chatResponse{
		Text:               resp.Answer,
		ShouldSpeak:        true,
		Intent:             intent.Label(resp.SchedulingIntent),
		Metadata:           meta,
		Answer:             resp.Answer,
		IsSchedulingIntent: resp.SchedulingIntent,
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		// The widget must always get an answer; panics become the apology.
		defer func() {
			if rec := recover(); rec != nil {
				deps.Logger.Error("chat handler panic", "request_id", reqID, "panic", rec)
				writeJSON(w, http.StatusOK, newChatResponse(router.Response{
					Answer: apologyAnswer,
					Source: router.SourceFallback,
				}))
			}
		}()

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be empty")
			return
		}
		if utf8.RuneCountInString(message) > maxMessageLength {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message must be at most %d characters", maxMessageLength)
			return
		}

		resp := deps.Router.Route(r.Context(), message)
		deps.Logger.Info("chat answered",
			"request_id", reqID,
			"source", resp.Source,
			"scheduling_intent", resp.SchedulingIntent,
		)
		writeJSON(w, http.StatusOK, newChatResponse(resp))
	}
}
