package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/pkg/common"
)

// Message represents a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for the chat completions endpoint
type ChatRequest struct {
	Model           string    `json:"model,omitempty"`
	Messages        []Message `json:"messages"`
	Stream          bool      `json:"stream"`
	Temperature     float64   `json:"temperature"`
	ReasoningEffort string    `json:"reasoning_effort,omitempty"`
}

// ChatChoice represents a choice in the chat completions response
type ChatChoice struct {
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
	Message      Message `json:"message"`
}

// ChatResponse represents the response structure of the chat completions endpoint
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
}

// RateLimiter implements a token bucket for rate limiting API calls
type RateLimiter struct {
	tokens      int
	maxTokens   int
	refillRate  time.Duration
	lastRefill  time.Time
	tokensMutex sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the specified parameters
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// GetToken tries to get a token from the bucket, refilling if necessary
func (r *RateLimiter) GetToken() bool {
	r.tokensMutex.Lock()
	defer r.tokensMutex.Unlock()

	now := time.Now()
	if added := int(now.Sub(r.lastRefill) / r.refillRate); added > 0 {
		r.tokens = min(r.maxTokens, r.tokens+added)
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// Client sends briefs to an OpenAI-compatible chat completions endpoint
type Client struct {
	http        *http.Client
	cfg         common.Analysis
	rateLimiter *RateLimiter
	logger      *log.Logger
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client for cfg
func NewClient(cfg common.Analysis, logger *log.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("analysis endpoint is required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	perMinute := cfg.RequestsPerMin
	if perMinute <= 0 {
		perMinute = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 360 * time.Second
	}

	return &Client{
		http:        &http.Client{Timeout: timeout},
		cfg:         cfg,
		rateLimiter: NewRateLimiter(perMinute, time.Minute/time.Duration(perMinute)),
		logger:      logger,
		baseDelay:   time.Second,
		sleep:       sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Complete sends brief as the user message and returns the first choice's content.
// Failed requests and non-200 responses are retried with exponential backoff and jitter.
func (c *Client) Complete(ctx context.Context, brief string) (string, error) {
	body, err := json.Marshal(c.newRequest(brief))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		for !c.rateLimiter.GetToken() {
			c.logger.Debug("Rate limit exceeded, waiting for token")
			if err := c.sleep(ctx, time.Second); err != nil {
				return "", err
			}
		}

		if attempt > 0 {
			c.logger.Debug("Retrying analysis request", "attempt", attempt, "max_retries", c.cfg.MaxRetries)
		}

		content, err := c.send(ctx, body)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		c.logger.Error("Analysis request failed", "err", err, "attempt", attempt)

		if attempt == c.cfg.MaxRetries {
			break
		}

		// baseDelay * 2^attempt plus up to 50% jitter
		delay := c.baseDelay * time.Duration(1<<uint(attempt))
		if half := int64(delay) / 2; half > 0 {
			delay += time.Duration(rand.Int63n(half))
		}
		c.logger.Debug("Backing off before retry", "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("analysis request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) newRequest(brief string) *ChatRequest {
	req := &ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: brief},
		},
		Stream:          false,
		Temperature:     0.3,
		ReasoningEffort: c.cfg.ReasoningEffort,
	}
	if c.cfg.Temperature > 0 {
		req.Temperature = c.cfg.Temperature
	}
	return req
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(msg))
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return chat.Choices[0].Message.Content, nil
}
