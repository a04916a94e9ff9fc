package evaluator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
)

//go:embed prompts/classify.txt
var classifyPrompt string

// LLMClassifier picks a (category, product) pair from the taxonomy's candidates.
type LLMClassifier struct {
	chat contract.ChatClient
}

var _ contract.Classifier = &LLMClassifier{}

// NewLLMClassifier creates a classifier on top of chat.
func NewLLMClassifier(chat contract.ChatClient) *LLMClassifier {
	return &LLMClassifier{chat: chat}
}

type classifyAnswer struct {
	Category string `json:"category"`
	Product  string `json:"product"`
}

// Classify implements contract.Classifier. An answer outside candidates is
// reported as an error so the caller falls back to Uncategorized.
func (c *LLMClassifier) Classify(ctx context.Context, code string, candidates []schema.Categorization) (schema.Categorization, error) {
	var list strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&list, "- %s | %s\n", cand.Category, cand.Product)
	}
	prompt := strings.NewReplacer("{{candidates}}", list.String(), "{{code}}", code).Replace(classifyPrompt)

	out, err := c.chat.Complete(ctx, contract.ChatRequest{
		Messages: []contract.ChatMessage{{Role: "user", Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return schema.Categorization{}, err
	}

	var answer classifyAnswer
	if err := DecodeLenient(out, &answer); err != nil {
		return schema.Categorization{}, &contract.CodeEvaluatorError{Stage: "classify", Err: err}
	}
	category := strings.TrimSpace(answer.Category)
	product := strings.TrimSpace(answer.Product)
	if category == schema.Uncategorized && product == schema.Uncategorized {
		return schema.Categorization{Category: category, Product: product}, nil
	}
	for _, cand := range candidates {
		if strings.EqualFold(cand.Category, category) && strings.EqualFold(cand.Product, product) {
			return schema.Categorization{Category: cand.Category, Product: cand.Product}, nil
		}
	}
	return schema.Categorization{}, &contract.CodeEvaluatorError{
		Stage: "classify",
		Err:   fmt.Errorf("answer %q / %q is not a known product", category, product),
	}
}
