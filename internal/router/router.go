// Package router decides how a customer chat message is answered: from the
// FAQ catalog when an entry matches, otherwise from the remote model, and
// from a fixed answer when the model cannot be used.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gotodobbs/assistant/internal/cache"
	"github.com/gotodobbs/assistant/internal/faq"
	"github.com/gotodobbs/assistant/internal/generative"
	"github.com/gotodobbs/assistant/internal/intent"
	"github.com/gotodobbs/assistant/internal/metrics"
)

// Fixed answers used when the remote model is not consulted or fails.
const (
	NotConfiguredAnswer = "Thanks for your question! Dobbs Tire & Auto Centers provides tires, brakes, alignments, oil changes, batteries, and general auto repair. We're family-operated since 1976 with over 50 locations in the St. Louis area. For specific information, I'd be happy to help you schedule an appointment with one of our locations. Would you like to do that?"
	UnavailableAnswer   = "I'm having trouble connecting to my knowledge base right now. Dobbs Tire & Auto Centers offers tires, brakes, oil changes, alignments, and more at over 50 locations. Would you like to schedule an appointment so our team can help you directly?"
	RephraseAnswer      = "I'm here to help! Could you please rephrase your question?"
)

// Source names the tier that produced an answer.
type Source string

const (
	SourceFAQ        Source = "faq"
	SourceGenerative Source = "generative"
	SourceFallback   Source = "fallback"
)

// Response is the outcome of routing one message. Answer is never empty.
type Response struct {
	Answer           string
	SchedulingIntent bool
	Source           Source
	// Question is the canonical FAQ question when Source is SourceFAQ.
	Question string
}

// Router is safe for concurrent use. The catalog is read-only and the
// optional cache and limiter synchronise internally.
type Router struct {
	catalog   *faq.Catalog
	gen       generative.Generator
	threshold float64
	timeout   time.Duration
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithThreshold overrides faq.DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(r *Router) { r.threshold = t }
}

// WithTimeout bounds each remote model call.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCache stores successful generated answers for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Router) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithLimiter caps the rate of remote model calls across all requests.
// When no token is available the fixed UnavailableAnswer is returned.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Router) { r.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

const defaultTimeout = 8 * time.Second

// New returns a Router. A nil gen behaves like generative.Disabled.
func New(catalog *faq.Catalog, gen generative.Generator, opts ...Option) *Router {
	if gen == nil {
		gen = generative.Disabled{}
	}
	r := &Router{
		catalog:   catalog,
		gen:       gen,
		threshold: faq.DefaultThreshold,
		timeout:   defaultTimeout,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Catalog returns the catalog the router matches against.
func (r *Router) Catalog() *faq.Catalog {
	return r.catalog
}

// Route answers message. It never fails: every remote error ends in one of
// the fixed answers.
func (r *Router) Route(ctx context.Context, message string) Response {
	resp := r.route(ctx, message)
	metrics.ChatAnswers.WithLabelValues(string(resp.Source)).Inc()
	if resp.SchedulingIntent {
		metrics.SchedulingIntents.Inc()
	}
	return resp
}

func (r *Router) route(ctx context.Context, message string) Response {
	asksToBook := intent.IsScheduling(message)

	if e, ok := r.catalog.Match(message, r.threshold); ok {
		return Response{
			Answer:           e.Answer,
			SchedulingIntent: asksToBook,
			Source:           SourceFAQ,
			Question:         e.Question,
		}
	}

	answer, err := r.generate(ctx, message)
	if err != nil {
		if errors.Is(err, generative.ErrNotConfigured) {
			return Response{Answer: NotConfiguredAnswer, Source: SourceFallback}
		}
		return Response{Answer: UnavailableAnswer, Source: SourceFallback}
	}

	if answer == "" {
		answer = RephraseAnswer
	}
	return Response{
		Answer:           answer,
		SchedulingIntent: asksToBook || intent.AnswerOffersScheduling(answer),
		Source:           SourceGenerative,
	}
}

var errRateLimited = errors.New("generative call rate limit exceeded")

// generate consults the cache, then the limiter, then the model.
func (r *Router) generate(ctx context.Context, message string) (string, error) {
	if _, disabled := r.gen.(generative.Disabled); disabled {
		metrics.GenerativeFailures.WithLabelValues("not_configured").Inc()
		return "", generative.ErrNotConfigured
	}

	key := cacheKey(message)
	if r.cache != nil {
		v, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.AnswerCache.WithLabelValues("hit").Inc()
			return string(v), nil
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.AnswerCache.WithLabelValues("miss").Inc()
		default:
			metrics.AnswerCache.WithLabelValues("error").Inc()
			r.logger.Warn("answer cache read failed", "error", err)
		}
	}

	if r.limiter != nil && !r.limiter.Allow() {
		metrics.GenerativeFailures.WithLabelValues("rate_limited").Inc()
		r.logger.Warn("generative call skipped", "error", errRateLimited)
		return "", errRateLimited
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	answer, err := r.gen.Generate(callCtx, message)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, generative.ErrNotConfigured) {
			metrics.GenerativeFailures.WithLabelValues("not_configured").Inc()
			return "", err
		}
		metrics.GenerativeDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		metrics.GenerativeFailures.WithLabelValues("error").Inc()
		r.logger.Warn("generative call failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return "", err
	}
	metrics.GenerativeDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	answer = strings.TrimSpace(answer)
	if answer != "" && r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte(answer), r.cacheTTL); err != nil {
			r.logger.Warn("answer cache write failed", "error", err)
		}
	}
	return answer, nil
}

// cacheKey folds case and whitespace so trivially different phrasings share
// an entry.
func cacheKey(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}
