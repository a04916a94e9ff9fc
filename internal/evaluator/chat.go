package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ChatOptions configure the OpenAI-compatible chat transport.
type ChatOptions struct {
	Model          string
	GroundingModel string
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	MaxRetries     int
	Timeout        time.Duration // per attempt
	RetryWait      time.Duration // first backoff interval
}

// OpenAIChatClient implements contract.ChatClient over any OpenAI-compatible endpoint.
// Calls are paced by a shared limiter, so one client serves every worker.
type OpenAIChatClient struct {
	client         *openai.Client
	model          string
	groundingModel string
	limiter        *rate.Limiter
	maxRetries     int
	timeout        time.Duration
	retryWait      time.Duration
	log            *logrus.Entry
}

var _ contract.ChatClient = &OpenAIChatClient{}

// NewOpenAIChatClient creates a chat client.
func NewOpenAIChatClient(opts ChatOptions, log *logrus.Entry) *OpenAIChatClient {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultHTTPTimeout
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &OpenAIChatClient{
		client:         openai.NewClientWithConfig(config),
		model:          opts.Model,
		groundingModel: opts.GroundingModel,
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     max(opts.MaxRetries, 0),
		timeout:        opts.Timeout,
		retryWait:      opts.RetryWait,
		log:            log,
	}
}

// Complete sends one chat completion and returns the first choice's content.
// Transient failures are retried; the final failure is a *contract.APIError.
func (c *OpenAIChatClient) Complete(ctx context.Context, req contract.ChatRequest) (string, error) {
	chatReq := c.buildRequest(req)
	log := c.log.WithFields(logrus.Fields{"model": chatReq.Model, "grounded": req.Grounded})

	attempt := 0
	op := func() (string, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, chatReq)
		if err != nil {
			if ctx.Err() != nil || !retryableChatError(err) {
				return "", backoff.Permanent(err)
			}
			log.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Warn("chat.retry")
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(errors.New("model returned no choices"))
		}
		return resp.Choices[0].Message.Content, nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryWait
	exp.MaxInterval = 30 * time.Second
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)

	content, err := backoff.RetryWithData(op, b)
	if err != nil {
		return "", toAPIError(chatReq.Model, err)
	}
	return content, nil
}

func (c *OpenAIChatClient) buildRequest(req contract.ChatRequest) openai.ChatCompletionRequest {
	model := c.model
	if req.Grounded && c.groundingModel != "" {
		model = c.groundingModel
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	// A zero temperature is dropped by omitempty; the smallest float keeps it deterministic.
	if chatReq.Temperature == 0 {
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return chatReq
}

// statusOf extracts the HTTP status of a go-openai error, or 0.
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

func retryableChatError(err error) bool {
	if isTimeout(err) {
		return true
	}
	_, ok := retryableStatus[statusOf(err)]
	return ok
}

func toAPIError(model string, err error) error {
	return &contract.APIError{
		URL:        fmt.Sprintf("model %s", model),
		StatusCode: statusOf(err),
		Timeout:    isTimeout(err),
		Err:        err,
	}
}
