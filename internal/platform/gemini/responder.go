package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/chat"
	"github.com/colloquyhq/colloquy-api/internal/config"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"google.golang.org/genai"
)

// contentGenerator is the subset of genai.Models used by Responder.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Responder implements chat.Responder using the Gemini API.
type Responder struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	models         contentGenerator
	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ chat.Responder = (*Responder)(nil)

// NewResponder creates a Responder with a live Gemini client.
func NewResponder(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Responder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", chat.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", chat.ErrInvalidConfig, redact.Error(err))
	}

	return newResponder(logger, cfg, client.Models)
}

func newResponder(logger *slog.Logger, cfg config.LLMConfig, models contentGenerator) (*Responder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", chat.ErrInvalidConfig)
	}

	tmpl, err := parsePromptTemplate()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", chat.ErrInvalidConfig, err)
	}

	return &Responder{
		logger:         logger.With(slog.String("component", "gemini_responder")),
		config:         cfg,
		promptTemplate: tmpl,
		models:         models,
		sleep:          sleepContext,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Respond renders the prompt for req and asks the model for an answer. The
// knowledge entries in req become the reply's sources.
func (r *Responder) Respond(ctx context.Context, req chat.Request) (*chat.Response, error) {
	prompt, err := renderPrompt(r.promptTemplate, req)
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, r.logger).Debug("prompt rendered",
		slog.Int("prompt_length", len(prompt)),
		slog.Int("history_turns", len(req.History)),
		slog.Int("sources", len(req.Knowledge)))

	text, tokens, err := r.generateWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(req.Knowledge))
	for _, k := range req.Knowledge {
		sources = append(sources, k.AsSource())
	}

	return &chat.Response{
		Text:       text,
		TokensUsed: tokens,
		Model:      r.config.ModelName,
		Sources:    sources,
	}, nil
}

// generateWithRetry calls the model, retrying transient failures with
// exponential backoff and jitter. Blocked or malformed responses are returned
// immediately.
func (r *Responder) generateWithRetry(ctx context.Context, prompt string) (string, int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	maxRetries := r.config.MaxRetries
	if maxRetries < 0 {
		log.Warn("invalid max retries value, using default", slog.Int("max_retries", 3))
		maxRetries = 3
	}
	baseDelaySeconds := r.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		log.Warn("invalid retry delay value, using default", slog.Int("base_delay_seconds", 2))
		baseDelaySeconds = 2
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		log.Info("making Gemini API call",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", maxRetries+1))

		text, tokens, err := r.generateOnce(ctx, prompt)
		if err == nil {
			log.Info("Gemini API call successful",
				slog.Int("attempt", attemptNum),
				slog.Int("tokens_used", tokens))
			return text, tokens, nil
		}

		log.Error("Gemini API call failed",
			slog.Int("attempt", attemptNum),
			redact.ErrorAttr(err))

		if errors.Is(err, chat.ErrContentBlocked) || errors.Is(err, chat.ErrInvalidResponse) {
			log.Warn("permanent error occurred, not retrying")
			return "", 0, err
		}

		if attempt >= maxRetries {
			log.Warn("maximum retry attempts reached", slog.Int("max_retries", maxRetries))
			return "", 0, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				chat.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * r.jitter() * float64(time.Second))

		log.Info("retrying after delay",
			slog.Int("attempt", attemptNum),
			slog.Duration("delay", delay))

		if err := r.sleep(ctx, delay); err != nil {
			log.Warn("API call cancelled during retry delay",
				slog.Int("attempt", attemptNum),
				slog.String("ctx_err", err.Error()))
			return "", 0, fmt.Errorf("%w: %v", chat.ErrTransientFailure, err)
		}
	}
}

// generateOnce performs a single model call and extracts the reply text.
func (r *Responder) generateOnce(ctx context.Context, prompt string) (string, int, error) {
	resp, err := r.models.GenerateContent(ctx, r.config.ModelName, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}, nil)
	if err != nil {
		return "", 0, err
	}

	switch {
	case resp == nil:
		return "", 0, fmt.Errorf("%w: nil response", chat.ErrInvalidResponse)
	case len(resp.Candidates) == 0 || resp.Candidates[0] == nil:
		return "", 0, fmt.Errorf("%w: no content generated", chat.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", 0, fmt.Errorf("%w: content blocked by safety filters", chat.ErrContentBlocked)
	case resp.Candidates[0].Content == nil:
		return "", 0, fmt.Errorf("%w: empty content in response", chat.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", 0, fmt.Errorf("%w: empty text in response", chat.ErrInvalidResponse)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, tokens, nil
}

func (r *Responder) jitter() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return 0.5 + r.rng.Float64()*0.5
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
