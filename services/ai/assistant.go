package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"legal_marketplace_go/services/metrics"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Assistant identifiers
const (
	AssistantExtractor  = "extractor"
	AssistantClassifier = "classifier"
	AssistantGuide      = "guide"
	AssistantProposal   = "proposal"
)

var (
	ErrUnknownAssistant = errors.New("ai: unknown assistant")
	ErrEmptyResponse    = errors.New("ai: assistant returned no text")
)

// Generator runs a prompt against a named assistant and returns its free-text answer.
type Generator interface {
	Run(ctx context.Context, assistantID, prompt string) (string, error)
}

// Assistant bundles the instructions an assistant runs with.
type Assistant struct {
	ID           string
	Instructions string
	MaxTokens    int64
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Model             string
	MaxTokens         int64
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// Runner implements Generator on top of a Client with a fixed set of assistants.
type Runner struct {
	client     Client
	cfg        RunnerConfig
	limiter    *rate.Limiter
	assistants map[string]Assistant
}

// NewRunner creates a Runner with the default legal-intake assistants registered.
func NewRunner(client Client, cfg RunnerConfig) *Runner {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	r := &Runner{
		client:     client,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
		assistants: make(map[string]Assistant),
	}
	for _, a := range DefaultAssistants() {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an assistant.
func (r *Runner) Register(a Assistant) {
	r.assistants[a.ID] = a
}

// Run executes the prompt with the assistant's instructions.
func (r *Runner) Run(ctx context.Context, assistantID, prompt string) (string, error) {
	assistant, ok := r.assistants[assistantID]
	if !ok {
		return "", eris.Wrapf(ErrUnknownAssistant, "assistant %q", assistantID)
	}

	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.AssistantCalls.WithLabelValues(assistantID, metrics.OutcomeFailure).Inc()
		return "", eris.Wrapf(err, "ai: rate limit wait for %s", assistantID)
	}

	maxTokens := assistant.MaxTokens
	if maxTokens <= 0 {
		maxTokens = r.cfg.MaxTokens
	}

	started := time.Now()
	resp, err := r.client.CreateMessage(ctx, MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: maxTokens,
		System:    assistant.Instructions,
		Prompt:    prompt,
	})
	if err != nil {
		metrics.AssistantCalls.WithLabelValues(assistantID, metrics.OutcomeFailure).Inc()
		return "", eris.Wrapf(err, "ai: run assistant %s", assistantID)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		metrics.AssistantCalls.WithLabelValues(assistantID, metrics.OutcomeFailure).Inc()
		return "", eris.Wrapf(ErrEmptyResponse, "assistant %s", assistantID)
	}

	metrics.AssistantCalls.WithLabelValues(assistantID, metrics.OutcomeSuccess).Inc()
	zap.L().Debug("assistant run completed",
		zap.String("assistant", assistantID),
		zap.String("stop_reason", resp.StopReason),
		zap.Int64("input_tokens", resp.InputTokens),
		zap.Int64("output_tokens", resp.OutputTokens),
		zap.Duration("elapsed", time.Since(started)),
	)
	return text, nil
}
