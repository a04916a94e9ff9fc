package schema

import (
	"encoding/json"
	"errors"
	"time"
)

// Commit is one entry of a file's commit history, newest first.
type Commit struct {
	Hash        string `json:"hash"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Date        string `json:"date"`
	Message     string `json:"message"`
}

// FileMetadata holds filesystem facts about a sample. Times are unix seconds.
type FileMetadata struct {
	Size     int64   `json:"size"`
	Created  float64 `json:"created"`
	Modified float64 `json:"modified"`
}

// GitInfo is the provenance of a single file. It is recomputed for every
// processed file and never mutated after it is returned.
type GitInfo struct {
	GithubOwner   string       `json:"github_owner,omitempty"`
	GithubRepo    string       `json:"github_repo,omitempty"`
	GithubLink    string       `json:"github_link,omitempty"`
	BranchName    string       `json:"branch_name"`
	LastUpdated   *string      `json:"last_updated"` // YYYY-MM-DD of the newest commit, nil when untracked
	CommitHistory []Commit     `json:"commit_history"`
	Metadata      FileMetadata `json:"metadata"`
}

// HasLink reports whether the file can be attributed to a GitHub location.
func (g GitInfo) HasLink() bool {
	return g.GithubLink != ""
}

// Criterion is one named entry in an assessment's criteria breakdown.
type Criterion struct {
	Name  string  `json:"criterion_name"`
	Score float64 `json:"score"`
}

// EvaluationRequest is what the pipeline sends to an evaluator.
type EvaluationRequest struct {
	FilePath   string
	Code       string
	Language   Language
	RegionTag  string
	GithubLink string
}

// EvaluationResult is the structured review of a single sample.
type EvaluationResult struct {
	Assessment        map[string]any  `json:"assessment"`
	ProductCategory   string          `json:"product_category,omitempty"`
	ProductName       string          `json:"product_name,omitempty"`
	Language          string          `json:"language,omitempty"`
	RegionTags        []string        `json:"region_tags,omitempty"`
	References        []string        `json:"references,omitempty"`
	ValidationHistory json.RawMessage `json:"validation_history,omitempty"`

	// Declined carries the service's reason when it refused to analyze the sample.
	Declined string `json:"-"`
}

// ErrMissingAssessment is returned by Validate when the assessment is absent.
var ErrMissingAssessment = errors.New("evaluation response is missing the 'assessment' object")

// Validate rejects results that cannot be stored.
func (r EvaluationResult) Validate() error {
	if r.Declined != "" {
		return nil
	}
	if len(r.Assessment) == 0 {
		return ErrMissingAssessment
	}
	return nil
}

// OverallScore returns overall_compliance_score from the assessment, if numeric.
func (r EvaluationResult) OverallScore() *float64 {
	return numberField(r.Assessment, "overall_compliance_score")
}

// Criteria returns the criteria breakdown from the assessment.
// Entries without a name are dropped.
func (r EvaluationResult) Criteria() []Criterion {
	return CriteriaFrom(r.Assessment)
}

// CriteriaFrom extracts the criteria breakdown from a decoded assessment.
func CriteriaFrom(assessment map[string]any) []Criterion {
	raw, ok := assessment["criteria_breakdown"].([]any)
	if !ok {
		return nil
	}
	var out []Criterion
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["criterion_name"].(string)
		if name == "" {
			continue
		}
		c := Criterion{Name: name}
		if s := numberField(m, "score"); s != nil {
			c.Score = *s
		}
		out = append(out, c)
	}
	return out
}

func numberField(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

// AnalysisRecord is the output of one successful analysis before flattening.
type AnalysisRecord struct {
	FilePath       string
	GitInfo        GitInfo
	RegionTags     []string
	Evaluation     EvaluationResult
	Categorization Categorization
	Language       Language
	RawCode        string
	EvaluationDate time.Time
	Generated      bool
}

// Row is the persisted unit in the analytical store. The field set is the
// durable contract with downstream consumers.
type Row struct {
	GithubLink             string    `json:"github_link"`
	FilePath               string    `json:"file_path"`
	GithubOwner            string    `json:"github_owner"`
	GithubRepo             string    `json:"github_repo"`
	ProductCategory        string    `json:"product_category"`
	ProductName            string    `json:"product_name"`
	Language               string    `json:"language"`
	OverallComplianceScore *float64  `json:"overall_compliance_score"`
	EvaluationData         string    `json:"evaluation_data"`
	RegionTags             []string  `json:"region_tags"`
	RawCode                string    `json:"raw_code"`
	EvaluationDate         time.Time `json:"evaluation_date"`
	LastUpdated            *string   `json:"last_updated"`
	BranchName             string    `json:"branch_name"`
	CommitHistory          string    `json:"commit_history"`
	Metadata               string    `json:"metadata"`
	ValidationDetails      string    `json:"validation_details"`
	Generated              bool      `json:"Generated"`
}

// SampleRef identifies a sample for categorization.
type SampleRef struct {
	IndexedSourceURL string `json:"indexed_source_url"`
	RegionTag        string `json:"region_tag"`
	RepositoryName   string `json:"repository_name"`
}

// Categorization is a (category, product) decision.
type Categorization struct {
	Category      string `json:"product_category"`
	Product       string `json:"product_name"`
	LLMDetermined bool   `json:"llm_determined"`
}

// CategorizationRow is one line of --categorize-only output.
type CategorizationRow struct {
	SampleRef
	Categorization
}

// CriteriaReportRow flattens a stored assessment for reporting.
type CriteriaReportRow struct {
	GithubLink             string    `json:"github_link"`
	GithubRepo             string    `json:"github_repo"`
	RegionTags             []string  `json:"region_tags"`
	LastUpdated            string    `json:"last_updated"`
	EvaluationDate         time.Time `json:"evaluation_date"`
	Runnability            *float64  `json:"runnability"`
	APIEffectiveness       *float64  `json:"api_effectiveness"`
	CommentsClarity        *float64  `json:"comments_clarity"`
	Formatting             *float64  `json:"formatting"`
	LanguagePractices      *float64  `json:"language_practices"`
	OverallComplianceScore *float64  `json:"overall_compliance_score"`
	ProblemCategories      []string  `json:"problem_categories"`
}

// Outcome is the non-error result of processing one file.
type Outcome struct {
	Path   string
	Status ProcessStatus
	Reason SkipReason
	Row    *Row
}

// Processed builds a success outcome.
func Processed(path string, row *Row) Outcome {
	return Outcome{Path: path, Status: StatusProcessed, Row: row}
}

// Skipped builds a skip outcome.
func Skipped(path string, reason SkipReason) Outcome {
	return Outcome{Path: path, Status: StatusSkipped, Reason: reason}
}
