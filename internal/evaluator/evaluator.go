// Package evaluator provides the clients that review a code sample: the remote
// HTTP analysis service and a two-stage chat-model evaluator, plus the
// model-backed product classifier used by categorization.
package evaluator

import (
	"fmt"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

// New returns the evaluator selected by cfg.Evaluator.
func New(cfg *contract.Config, log *logrus.Entry) (contract.Evaluator, error) {
	switch cfg.Evaluator {
	case schema.HTTPEvaluator, "":
		if cfg.APIURL == "" {
			return nil, fmt.Errorf("api-url is required for the %s evaluator", schema.HTTPEvaluator)
		}
		return NewHTTPEvaluator(HTTPOptions{
			URL:        cfg.APIURL,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.MaxRetries,
		}, log), nil
	case schema.LLMEvaluator:
		return NewLLMEvaluator(NewChatClient(cfg, log), log), nil
	default:
		return nil, fmt.Errorf("unknown evaluator %q", cfg.Evaluator)
	}
}

// NewChatClient builds the chat transport from cfg.
func NewChatClient(cfg *contract.Config, log *logrus.Entry) *OpenAIChatClient {
	return NewOpenAIChatClient(ChatOptions{
		Model:          cfg.Model,
		GroundingModel: cfg.GroundingModel,
		BaseURL:        cfg.LLMBaseURL,
		APIKey:         cfg.LLMAPIKey,
		RequestsPerSec: cfg.LLMRPS,
		MaxRetries:     cfg.MaxRetries,
		Timeout:        cfg.HTTPTimeout,
	}, log)
}

// NewClassifier returns nil when no model endpoint is configured.
func NewClassifier(cfg *contract.Config, log *logrus.Entry) contract.Classifier {
	if cfg.LLMAPIKey == "" && cfg.LLMBaseURL == "" {
		return nil
	}
	return NewLLMClassifier(NewChatClient(cfg, log))
}
