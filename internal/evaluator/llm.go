package evaluator

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

var (
	//go:embed prompts/system.txt
	systemPrompt string

	//go:embed prompts/evaluate.txt
	evaluatePrompt string

	//go:embed prompts/json_conversion.txt
	conversionPrompt string
)

// urlPattern finds http(s) URLs in free text. Trailing punctuation is trimmed separately.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60\])]+`)

// LLMEvaluator reviews samples with a chat model in two stages: a grounded
// free-text review, then a JSON-mode conversion of that review.
type LLMEvaluator struct {
	chat contract.ChatClient
	log  *logrus.Entry
}

var _ contract.Evaluator = &LLMEvaluator{}

// NewLLMEvaluator creates an evaluator on top of chat.
func NewLLMEvaluator(chat contract.ChatClient, log *logrus.Entry) *LLMEvaluator {
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &LLMEvaluator{chat: chat, log: log}
}

// Evaluate implements contract.Evaluator.
func (e *LLMEvaluator) Evaluate(ctx context.Context, req schema.EvaluationRequest) (schema.EvaluationResult, error) {
	log := e.log.WithField("github_link", req.GithubLink)

	review, err := e.chat.Complete(ctx, contract.ChatRequest{
		Messages: []contract.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: renderEvaluatePrompt(req)},
		},
		Temperature: 0,
		TopP:        0.9,
		Grounded:    true,
	})
	if err != nil {
		return schema.EvaluationResult{}, stageError("review", err)
	}
	if strings.TrimSpace(review) == "" {
		return schema.EvaluationResult{}, stageError("review", errors.New("model returned an empty review"))
	}
	citations := ExtractCitations(review, req.GithubLink)
	log.WithField("citations", len(citations)).Debug("evaluate.llm.reviewed")

	converted, err := e.chat.Complete(ctx, contract.ChatRequest{
		Messages: []contract.ChatMessage{
			{Role: "user", Content: renderConversionPrompt(review, citations)},
		},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return schema.EvaluationResult{}, stageError("conversion", err)
	}

	var obj map[string]any
	if err := DecodeLenient(converted, &obj); err != nil {
		return schema.EvaluationResult{}, stageError("parse", err)
	}
	result := resultFromObject(obj)
	if len(result.Assessment) == 0 {
		return schema.EvaluationResult{}, stageError("parse", schema.ErrMissingAssessment)
	}
	if len(citations) > 0 {
		result.References = citations
		result.Assessment["references"] = citations
	}
	log.Debug("evaluate.llm.done")
	return result, nil
}

// stageError keeps transport failures visible as *contract.APIError so the
// driver can classify timeouts.
func stageError(stage string, err error) error {
	var apiErr *contract.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &contract.CodeEvaluatorError{Stage: stage, Err: err}
}

func renderEvaluatePrompt(req schema.EvaluationRequest) string {
	code, _ := json.Marshal(req.Code)
	return strings.NewReplacer(
		"{{language}}", string(req.Language),
		"{{language_lower}}", strings.ToLower(string(req.Language)),
		"{{uri}}", req.GithubLink,
		"{{region_tag}}", req.RegionTag,
		"{{code}}", string(code),
	).Replace(evaluatePrompt)
}

func renderConversionPrompt(review string, citations []string) string {
	prompt := strings.ReplaceAll(conversionPrompt, "{{text}}", review)
	if len(citations) == 0 {
		return prompt
	}
	refs, _ := json.Marshal(citations)
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nAdditional Instructions:\n")
	b.WriteString("6. Include a top-level key `references`.\n")
	fmt.Fprintf(&b, "7. Its value MUST be exactly this JSON array: %s\n", refs)
	return b.String()
}

// ExtractCitations returns the unique http(s) URLs in text, in first-seen
// order, excluding the sample's own link.
func ExtractCitations(text string, sampleLink string) []string {
	var out []string
	for _, raw := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(raw, ".,;:!?*")
		if u == "" || u == sampleLink || slices.Contains(out, u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// resultFromObject accepts either {"assessment": {...}, ...} or a bare assessment object.
func resultFromObject(obj map[string]any) schema.EvaluationResult {
	var result schema.EvaluationResult
	if inner, ok := obj["assessment"].(map[string]any); ok {
		result.Assessment = inner
	} else if len(obj) > 0 {
		result.Assessment = obj
	}
	result.ProductCategory, _ = obj["product_category"].(string)
	result.ProductName, _ = obj["product_name"].(string)
	result.Language, _ = obj["language"].(string)
	if tags, ok := obj["region_tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok && s != "" {
				result.RegionTags = append(result.RegionTags, s)
			}
		}
	}
	return result
}
