package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

// GitResolver produces the provenance of a file.
type GitResolver interface {
	Execute(ctx context.Context, filePath string) (schema.GitInfo, error)
}

// TagExtractor returns the sorted region tags of a file.
type TagExtractor interface {
	Execute(path string) ([]string, error)
}

// ProcessOptions are the per-run switches of ProcessFile.
type ProcessOptions struct {
	Regen     bool
	Generated bool
}

// CodeProcessor runs the per-file pipeline. All collaborators are injected and
// shared by every worker, so they must be safe for concurrent use.
type CodeProcessor struct {
	git         GitResolver
	tags        TagExtractor
	evaluator   contract.Evaluator
	categorizer *ProductCategorizer
	store       contract.SampleStore
	log         *logrus.Entry
	now         func() time.Time
	stdin       io.Reader
}

// NewCodeProcessor wires a processor. evaluator and store may be nil for the
// categorize-only path.
func NewCodeProcessor(git GitResolver, tags TagExtractor, evaluator contract.Evaluator, categorizer *ProductCategorizer, store contract.SampleStore, log *logrus.Entry) *CodeProcessor {
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &CodeProcessor{
		git:         git,
		tags:        tags,
		evaluator:   evaluator,
		categorizer: categorizer,
		store:       store,
		log:         log,
		now:         time.Now,
		stdin:       os.Stdin,
	}
}

// ProcessFile analyzes one file and persists its row.
// Skips are returned as outcomes; every failure is returned as an error.
func (p *CodeProcessor) ProcessFile(ctx context.Context, path string, opts ProcessOptions) (schema.Outcome, error) {
	log := p.log.WithField("file", path)

	// --- 1. Language gate ---
	lang := schema.LanguageForPath(path)
	if !lang.Supported() {
		log.Debug("process.skip.unsupported")
		return schema.Skipped(path, schema.SkipUnsupported), nil
	}

	// --- 2. Provenance ---
	info, err := p.resolveGit(ctx, path)
	if err != nil {
		return schema.Outcome{}, err
	}
	log = log.WithField("github_link", info.GithubLink)

	// --- 3. Dedup / regen ---
	if opts.Regen {
		log.Info("process.regen.delete")
		if err := p.store.Delete(ctx, info.GithubLink, info.LastUpdated); err != nil {
			return schema.Outcome{}, err
		}
	} else {
		exists, err := p.store.RecordExists(ctx, info.GithubLink, info.LastUpdated)
		if err != nil {
			return schema.Outcome{}, err
		}
		if exists {
			log.Info("process.skip.already_processed")
			return schema.Skipped(path, schema.SkipAlreadyProcessed), nil
		}
	}

	// --- 4. Region tags ---
	tags, err := p.tags.Execute(path)
	if err != nil {
		return schema.Outcome{}, err
	}
	if len(tags) == 0 {
		log.Info("process.skip.no_region_tags")
		return schema.Skipped(path, schema.SkipNoRegionTags), nil
	}

	// --- 5. Evaluate ---
	code, err := p.readCode(path)
	if err != nil {
		return schema.Outcome{}, err
	}
	result, err := p.evaluate(ctx, path, code, lang, tags, info)
	if err != nil {
		return schema.Outcome{}, err
	}
	if result.Declined != "" {
		log.WithField("reason", result.Declined).Info("process.skip.evaluation_declined")
		return schema.Skipped(path, schema.SkipEvaluationDeclined), nil
	}

	// --- 6. Categorize ---
	cat := p.categorize(ctx, info, tags, code, result)

	// --- 7. Build and persist ---
	row, err := NewRowBuilder(path, info).
		WithTags(tags).
		WithEvaluation(result).
		WithCategorization(cat).
		WithLanguage(lang).
		WithCode(code).
		WithGenerated(opts.Generated).
		EvaluatedAt(p.now()).
		Build()
	if err != nil {
		return schema.Outcome{}, err
	}
	if err := p.store.Create(ctx, row); err != nil {
		return schema.Outcome{}, err
	}

	log.WithFields(logrus.Fields{
		"product":  row.ProductName,
		"score":    row.OverallComplianceScore,
		"language": row.Language,
	}).Info("process.persisted")
	return schema.Processed(path, &row), nil
}

// AnalyzeOnly evaluates a single file without touching the store.
func (p *CodeProcessor) AnalyzeOnly(ctx context.Context, path string) (schema.AnalysisRecord, error) {
	lang := schema.LanguageForPath(path)
	if !lang.Supported() {
		return schema.AnalysisRecord{}, &contract.UnsupportedFileTypeError{Path: path}
	}
	info, err := p.resolveGit(ctx, path)
	if err != nil {
		return schema.AnalysisRecord{}, err
	}
	tags, err := p.tags.Execute(path)
	if err != nil {
		return schema.AnalysisRecord{}, err
	}
	code, err := p.readCode(path)
	if err != nil {
		return schema.AnalysisRecord{}, err
	}
	result, err := p.evaluate(ctx, path, code, lang, tags, info)
	if err != nil {
		return schema.AnalysisRecord{}, err
	}
	return schema.AnalysisRecord{
		FilePath:       path,
		GitInfo:        info,
		RegionTags:     tags,
		Evaluation:     result,
		Categorization: p.categorize(ctx, info, tags, code, result),
		Language:       lang,
		RawCode:        code,
		EvaluationDate: p.now(),
	}, nil
}

// CategorizeOnly categorizes a local file from its provenance and first region tag.
func (p *CodeProcessor) CategorizeOnly(ctx context.Context, path string) (schema.CategorizationRow, error) {
	info, err := p.resolveGit(ctx, path)
	if err != nil {
		return schema.CategorizationRow{}, err
	}
	tags, err := p.tags.Execute(path)
	if err != nil {
		return schema.CategorizationRow{}, err
	}
	code, err := p.readCode(path)
	if err != nil {
		return schema.CategorizationRow{}, err
	}
	ref := sampleRef(info, tags)
	return schema.CategorizationRow{SampleRef: ref, Categorization: p.categorizer.Categorize(ctx, ref, code)}, nil
}

// CategorizeSource categorizes a CSV row. The local clone, when present, supplies code
// for the classifier fallback.
func (p *CodeProcessor) CategorizeSource(ctx context.Context, src SampleSource) schema.CategorizationRow {
	ref := schema.SampleRef{
		IndexedSourceURL: src.URL,
		RegionTag:        src.RegionTag,
		RepositoryName:   src.RepositoryName,
	}
	var code string
	if src.LocalPath != "" {
		if data, err := os.ReadFile(src.LocalPath); err == nil {
			code = string(data)
		}
	}
	return schema.CategorizationRow{SampleRef: ref, Categorization: p.categorizer.Categorize(ctx, ref, code)}
}

func (p *CodeProcessor) resolveGit(ctx context.Context, path string) (schema.GitInfo, error) {
	info, err := p.git.Execute(ctx, path)
	if err != nil {
		return schema.GitInfo{}, err
	}
	if !info.HasLink() {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: path, Err: fmt.Errorf("no GitHub remote")}
	}
	return info, nil
}

func (p *CodeProcessor) readCode(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == StdinPath {
		data, err = io.ReadAll(p.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func (p *CodeProcessor) evaluate(ctx context.Context, path, code string, lang schema.Language, tags []string, info schema.GitInfo) (schema.EvaluationResult, error) {
	if p.evaluator == nil {
		return schema.EvaluationResult{}, &contract.CodeEvaluatorError{Stage: "setup", Err: fmt.Errorf("no evaluator configured")}
	}
	req := schema.EvaluationRequest{
		FilePath:   path,
		Code:       code,
		Language:   lang,
		GithubLink: info.GithubLink,
	}
	if len(tags) > 0 {
		req.RegionTag = tags[0]
	}
	result, err := p.evaluator.Evaluate(ctx, req)
	if err != nil {
		return schema.EvaluationResult{}, err
	}
	if err := result.Validate(); err != nil {
		return schema.EvaluationResult{}, &contract.CodeEvaluatorError{Stage: "validate", Err: err}
	}
	return result, nil
}

// categorize prefers keyword rules, then a category supplied by the evaluator,
// then the classifier.
func (p *CodeProcessor) categorize(ctx context.Context, info schema.GitInfo, tags []string, code string, result schema.EvaluationResult) schema.Categorization {
	ref := sampleRef(info, tags)
	if cat, ok := p.categorizer.MatchRules(ref); ok {
		return cat
	}
	if result.ProductCategory != "" && result.ProductName != "" {
		return schema.Categorization{Category: result.ProductCategory, Product: result.ProductName}
	}
	return p.categorizer.Categorize(ctx, ref, code)
}

func sampleRef(info schema.GitInfo, tags []string) schema.SampleRef {
	ref := schema.SampleRef{IndexedSourceURL: info.GithubLink}
	if info.GithubOwner != "" {
		ref.RepositoryName = info.GithubOwner + "/" + info.GithubRepo
	}
	if len(tags) > 0 {
		ref.RegionTag = tags[0]
	}
	return ref
}
