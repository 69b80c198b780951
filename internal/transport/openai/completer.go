package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hackrx-cloud/docqa/internal/domain"
	"github.com/hackrx-cloud/docqa/internal/metrics"
)

// Defaults for the completion service.
const (
	DefaultBaseURL    = "https://api.a4f.co/v1"
	DefaultModel      = "provider-2/gpt-4o-mini"
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second
)

const systemInstruction = "You are a helpful assistant that provides clear, " +
	"concise answers based on policy documents. Always respond in exactly one sentence."

const promptTemplate = `Based on the following context from a policy document, provide a clear and concise answer to the question in exactly ONE sentence.

Context: %s

Question: %s

Answer (one sentence only):`

// Sampling parameters are fixed to favor deterministic, concise output.
const (
	temperature = 0.3
	topP        = 0.9
)

// Completer calls an OpenAI-compatible chat-completion service, rotating
// across a pool of API credentials round-robin and retrying transient
// failures with exponential backoff. The rotation cursor is instance
// state: consecutive calls use different credentials when the pool has
// more than one entry. Cursor advancement is mutex-guarded, so health
// checks and answer generation can share one instance.
type Completer struct {
	clients    []*openai.Client
	model      string
	maxRetries int
	logger     *zap.Logger

	mu     sync.Mutex
	cursor int

	// sleep is replaced in tests to observe backoff without wall-clock delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Config holds the completion provider settings.
type Config struct {
	APIKeys    []string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewCompleter creates a completion client. The credential pool must be
// non-empty; an empty pool is a configuration error, not a retryable one.
func NewCompleter(cfg *Config) (*Completer, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, errors.New("at least one API key must be provided")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	clients := make([]*openai.Client, len(cfg.APIKeys))
	for i, key := range cfg.APIKeys {
		clientCfg := openai.DefaultConfig(key)
		clientCfg.BaseURL = baseURL
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
		clients[i] = openai.NewClientWithConfig(clientCfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		clients:    clients,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepContext,
	}, nil
}

// GenerateAnswer asks the completion service for a one-sentence answer
// to question given the retrieved context. Each attempt consumes the
// next credential in rotation order. Exhaustion of all attempts returns
// domain.ErrCompletionExhausted, a recoverable outcome.
func (c *Completer) GenerateAnswer(ctx context.Context, question, contextText string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, contextText, question)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		client := c.nextClient()

		start := time.Now()
		resp, err := client.CreateChatCompletion(ctx, req)
		duration := time.Since(start)

		if err == nil && len(resp.Choices) > 0 {
			metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
			metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()

		if err == nil {
			// 200 with no choices; treat like a malformed response.
			c.logger.Warn("completion response had no choices",
				zap.Int("attempt", attempt+1))
			metrics.CompletionRetriesTotal.WithLabelValues(c.model, "malformed").Inc()
			if serr := c.sleep(ctx, time.Second); serr != nil {
				return "", fmt.Errorf("completion canceled: %w", serr)
			}
			continue
		}

		status := statusOf(err)
		switch {
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			c.logger.Warn("completion request failed, backing off",
				zap.Int("attempt", attempt+1),
				zap.Int("status", status))
			metrics.CompletionRetriesTotal.WithLabelValues(c.model, "transient").Inc()
			backoff := time.Duration(1<<attempt) * time.Second
			if serr := c.sleep(ctx, backoff); serr != nil {
				return "", fmt.Errorf("completion canceled: %w", serr)
			}
		case status > 0:
			// Non-retryable status: skip the wait, try the next credential.
			c.logger.Warn("completion request rejected",
				zap.Int("attempt", attempt+1),
				zap.Int("status", status))
			metrics.CompletionRetriesTotal.WithLabelValues(c.model, "rejected").Inc()
		default:
			c.logger.Warn("completion request error",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			metrics.CompletionRetriesTotal.WithLabelValues(c.model, "network").Inc()
			if serr := c.sleep(ctx, time.Second); serr != nil {
				return "", fmt.Errorf("completion canceled: %w", serr)
			}
		}
	}

	return "", fmt.Errorf("no answer after %d attempts: %w", c.maxRetries, domain.ErrCompletionExhausted)
}

// HealthCheck verifies API availability via ListModels using the next
// credential in rotation.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.nextClient().ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// PoolSize returns the number of credentials in the rotation pool.
func (c *Completer) PoolSize() int { return len(c.clients) }

// nextClient advances the rotation cursor and returns the client bound
// to the consumed credential.
func (c *Completer) nextClient() *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	client := c.clients[c.cursor]
	c.cursor = (c.cursor + 1) % len(c.clients)
	return client
}

// statusOf extracts the HTTP status from a go-openai error.
// Returns 0 for network-level failures.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
