package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"headline-sft/internal/core/types"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel       = "qwen3-8b-5k-quant-8-2:latest"
	DefaultTemperature = 0.6
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 4096
	DefaultTimeout     = 120 * time.Second
	DefaultBackoff     = 2 * time.Second
	DefaultPacing      = 200 * time.Millisecond
	DefaultMaxAttempts = 3
)

var ErrMalformedResponse = errors.New("response has no choices[0].message.content")

type Options struct {
	// BaseURL of an OpenAI compatible API, e.g. http://host:11434/v1.
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int64
	// Timeout bounds a single request.
	Timeout time.Duration
	// Backoff is the wait between two attempts of the same request.
	Backoff time.Duration
	// Pacing is the gap between the end of one request and the start of the
	// next, whatever the outcome of the first.
	Pacing      time.Duration
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		Backoff:     DefaultBackoff,
		Pacing:      DefaultPacing,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// TokenUsage tracks usage counts reported by the endpoint.
type TokenUsage struct {
	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result is the outcome of one completion request after all attempts.
type Result struct {
	Text     string
	Attempts int
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Client struct {
	client openai.Client
	opts   Options

	// turn is held for the whole of a request, nextCall is only read or
	// written while holding it.
	turn     chan struct{}
	nextCall time.Time

	mu    sync.Mutex
	usage TokenUsage
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("inference base url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("inference model is required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		// Self hosted endpoints ignore the key but the sdk requires one.
		apiKey = "none"
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &Client{
		client: openai.NewClient(reqOpts...),
		opts:   opts,
		turn:   make(chan struct{}, 1),
	}, nil
}

func (c *Client) Model() string {
	return c.opts.Model
}

func (c *Client) Usage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Complete sends the prompt pair to the endpoint, retrying failed attempts up to
// MaxAttempts with a fixed backoff. It only fails early if ctx is done.
func (c *Client) Complete(ctx context.Context, pair types.PromptPair) Result {
	var res Result
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		res.Attempts = attempt

		text, err := c.once(ctx, pair)
		if err == nil {
			res.Text, res.Err = text, nil
			return res
		}
		res.Err = err

		if ctx.Err() != nil {
			return res
		}
		if attempt < c.opts.MaxAttempts {
			slog.Warn("completion attempt failed, retrying", "attempt", attempt, "max_attempts", c.opts.MaxAttempts, "error", err)
			if err := sleep(ctx, c.opts.Backoff); err != nil {
				return res
			}
		}
	}
	return res
}

func (c *Client) once(ctx context.Context, pair types.PromptPair) (string, error) {
	if err := c.waitTurn(ctx); err != nil {
		return "", err
	}
	defer c.donePacing()

	var messages []openai.ChatCompletionMessageParamUnion
	if pair.System != "" {
		messages = append(messages, openai.SystemMessage(pair.System))
	}
	messages = append(messages, openai.UserMessage(pair.User))

	res, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    messages,
		Temperature: openai.Float(c.opts.Temperature),
		TopP:        openai.Float(c.opts.TopP),
		MaxTokens:   openai.Int(c.opts.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(res.Choices) == 0 || !res.Choices[0].Message.JSON.Content.Valid() {
		return "", ErrMalformedResponse
	}

	c.mu.Lock()
	c.usage.CompletionTokens += res.Usage.CompletionTokens
	c.usage.PromptTokens += res.Usage.PromptTokens
	c.usage.TotalTokens += res.Usage.TotalTokens
	c.mu.Unlock()

	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// Generate returns the generated text, or the error marker for task if every
// attempt failed.
func (c *Client) Generate(ctx context.Context, task types.Task, pair types.PromptPair) string {
	res := c.Complete(ctx, pair)
	if !res.OK() {
		slog.Error("generation failed", "task", task, "attempts", res.Attempts, "error", res.Err)
		return ErrorMarker(task, res.Err)
	}
	return res.Text
}

const errorMarkerPrefix = "[ERROR generating "

// ErrorMarker is the text stored in place of an output that could not be generated.
func ErrorMarker(task types.Task, err error) string {
	return fmt.Sprintf("%s%s: %v]", errorMarkerPrefix, task, err)
}

func IsErrorMarker(text string) bool {
	return strings.HasPrefix(text, errorMarkerPrefix)
}

// waitTurn blocks until no other request is in flight and Pacing has passed
// since the previous request finished. A nil error must be followed by donePacing.
func (c *Client) waitTurn(ctx context.Context) error {
	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := sleep(ctx, time.Until(c.nextCall)); err != nil {
		<-c.turn
		return err
	}
	return nil
}

func (c *Client) donePacing() {
	c.nextCall = time.Now().Add(c.opts.Pacing)
	<-c.turn
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
