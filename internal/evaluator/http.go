package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

// retryableStatus is the transient status set shared by every remote call.
var retryableStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// HTTPOptions configure the HTTP evaluation client.
type HTTPOptions struct {
	URL          string
	Timeout      time.Duration // per attempt
	MaxRetries   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// HTTPEvaluator calls a remote analysis service.
type HTTPEvaluator struct {
	client *resty.Client
	url    string
	log    *logrus.Entry
}

var _ contract.Evaluator = &HTTPEvaluator{}

type httpEvalRequest struct {
	GithubLink string `json:"github_link"`
	Code       string `json:"code"`
	Language   string `json:"language"`
}

type httpAnalysis struct {
	Assessment      map[string]any  `json:"assessment"`
	ProductCategory string          `json:"product_category"`
	ProductName     string          `json:"product_name"`
	Language        string          `json:"language"`
	RegionTags      []string        `json:"region_tags"`
	Error           json.RawMessage `json:"error"`
}

type httpEvalResponse struct {
	Analysis          *httpAnalysis   `json:"analysis"`
	ValidationHistory json.RawMessage `json:"validation_history"`
}

// NewHTTPEvaluator creates an evaluator that POSTs samples to opts.URL.
// Transient statuses and timeouts are retried with jittered exponential backoff.
func NewHTTPEvaluator(opts HTTPOptions, log *logrus.Entry) *HTTPEvaluator {
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultHTTPTimeout
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 30 * time.Second
	}
	if log == nil {
		log = contract.DiscardLogger()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(max(opts.MaxRetries, 0)).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(shouldRetry).
		AddRetryHook(func(r *resty.Response, err error) {
			fields := logrus.Fields{"url": opts.URL}
			if r != nil && r.Request != nil {
				fields["attempt"] = r.Request.Attempt
			}
			if err != nil {
				fields["error"] = err
			} else if r != nil {
				fields["status"] = r.StatusCode()
			}
			log.WithFields(fields).Warn("evaluate.http.retry")
		})

	return &HTTPEvaluator{client: client, url: opts.URL, log: log}
}

func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		return isTimeout(err)
	}
	_, ok := retryableStatus[r.StatusCode()]
	return ok
}

// isTimeout reports whether err is a transport or deadline timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Evaluate implements contract.Evaluator.
func (e *HTTPEvaluator) Evaluate(ctx context.Context, req schema.EvaluationRequest) (schema.EvaluationResult, error) {
	log := e.log.WithField("github_link", req.GithubLink)
	log.Debug("evaluate.http.start")

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(httpEvalRequest{GithubLink: req.GithubLink, Code: req.Code, Language: string(req.Language)}).
		Post(e.url)
	if err != nil {
		return schema.EvaluationResult{}, &contract.APIError{URL: req.GithubLink, Timeout: isTimeout(err), Err: err}
	}
	log.WithField("status", resp.StatusCode()).Debug("evaluate.http.done")
	if resp.IsError() {
		return schema.EvaluationResult{}, &contract.APIError{
			URL:        req.GithubLink,
			StatusCode: resp.StatusCode(),
			Msg:        truncate(strings.TrimSpace(resp.String()), 200),
		}
	}

	var body httpEvalResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return schema.EvaluationResult{}, &contract.APIError{URL: req.GithubLink, Msg: "response is not JSON", Err: err}
	}
	if body.Analysis == nil {
		return schema.EvaluationResult{}, &contract.APIError{URL: req.GithubLink, Msg: "response is missing the 'analysis' object"}
	}
	a := body.Analysis
	if len(a.Error) > 0 && string(a.Error) != "null" {
		return schema.EvaluationResult{Declined: declineReason(a.Error)}, nil
	}
	if len(a.Assessment) == 0 {
		return schema.EvaluationResult{}, &contract.APIError{URL: req.GithubLink, Msg: schema.ErrMissingAssessment.Error(), Err: schema.ErrMissingAssessment}
	}

	return schema.EvaluationResult{
		Assessment:        a.Assessment,
		ProductCategory:   a.ProductCategory,
		ProductName:       a.ProductName,
		Language:          a.Language,
		RegionTags:        a.RegionTags,
		ValidationHistory: body.ValidationHistory,
	}, nil
}

func declineReason(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
