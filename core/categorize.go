package core

import (
	"context"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

// MaxClassifierChars bounds how much code is sent to the fallback classifier.
const MaxClassifierChars = 15000

// ProductCategorizer resolves a (category, product) pair for a sample.
// Keyword rules resolve most samples; the classifier only sees the rest.
type ProductCategorizer struct {
	taxonomy   *Taxonomy
	classifier contract.Classifier
	log        *logrus.Entry
}

// NewProductCategorizer creates a categorizer. classifier may be nil, in which case
// unmatched samples are Uncategorized without a model call.
func NewProductCategorizer(taxonomy *Taxonomy, classifier contract.Classifier, log *logrus.Entry) *ProductCategorizer {
	if taxonomy == nil {
		taxonomy = NewTaxonomy()
	}
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &ProductCategorizer{taxonomy: taxonomy, classifier: classifier, log: log}
}

// MatchRules checks the URL, then the region tag, then the repository name.
func (c *ProductCategorizer) MatchRules(ref schema.SampleRef) (schema.Categorization, bool) {
	for _, field := range []string{ref.IndexedSourceURL, ref.RegionTag, ref.RepositoryName} {
		if cat, ok := c.taxonomy.Match(field); ok {
			return cat, true
		}
	}
	return schema.Categorization{}, false
}

// Categorize returns the rule match if any, otherwise asks the classifier.
// Classifier failures yield Uncategorized with LLMDetermined set.
func (c *ProductCategorizer) Categorize(ctx context.Context, ref schema.SampleRef, code string) schema.Categorization {
	if cat, ok := c.MatchRules(ref); ok {
		return cat
	}
	if c.classifier == nil || code == "" {
		return schema.Categorization{Category: schema.Uncategorized, Product: schema.Uncategorized}
	}

	cat, err := c.classifier.Classify(ctx, truncateRunes(code, MaxClassifierChars), c.taxonomy.Candidates())
	if err != nil || cat.Category == "" || cat.Product == "" {
		c.log.WithFields(logrus.Fields{
			"github_link": ref.IndexedSourceURL,
			"error":       err,
		}).Warn("categorize.llm.failed")
		return schema.Categorization{Category: schema.Uncategorized, Product: schema.Uncategorized, LLMDetermined: true}
	}
	cat.LLMDetermined = true
	return cat
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
