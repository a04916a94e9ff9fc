package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRequest = schema.EvaluationRequest{
	FilePath:   "/repo/storage/quickstart.py",
	Code:       "print('hi')",
	Language:   "Python",
	RegionTag:  "storage_quickstart",
	GithubLink: "https://github.com/acme/samples/blob/main/storage/quickstart.py",
}

func fastHTTPEvaluator(url string, retries int) *HTTPEvaluator {
	return NewHTTPEvaluator(HTTPOptions{
		URL:          url,
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	}, nil)
}

const okBody = `{
  "analysis": {
    "assessment": {"overall_compliance_score": 91, "criteria_breakdown": []},
    "product_category": "Data Analytics",
    "product_name": "BigQuery",
    "region_tags": ["bigquery_query"]
  },
  "validation_history": [{"attempt": 1}]
}`

func TestHTTPEvaluator_Success(t *testing.T) {
	var got httpEvalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	result, err := fastHTTPEvaluator(server.URL, 0).Evaluate(context.Background(), sampleRequest)

	require.NoError(t, err)
	assert.Equal(t, sampleRequest.GithubLink, got.GithubLink)
	assert.Equal(t, "Python", got.Language)
	assert.Equal(t, "BigQuery", result.ProductName)
	assert.Equal(t, []string{"bigquery_query"}, result.RegionTags)
	require.NotNil(t, result.OverallScore())
	assert.InDelta(t, 91, *result.OverallScore(), 0.001)
	assert.JSONEq(t, `[{"attempt": 1}]`, string(result.ValidationHistory))
}

func TestHTTPEvaluator_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	_, err := fastHTTPEvaluator(server.URL, 3).Evaluate(context.Background(), sampleRequest)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPEvaluator_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad language"))
	}))
	defer server.Close()

	_, err := fastHTTPEvaluator(server.URL, 3).Evaluate(context.Background(), sampleRequest)

	var apiErr *contract.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad language", apiErr.Msg)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPEvaluator_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := fastHTTPEvaluator(server.URL, 2).Evaluate(context.Background(), sampleRequest)

	var apiErr *contract.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPEvaluator_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "not json", body: "<html>oops</html>"},
		{name: "no analysis", body: `{"validation_history": []}`},
		{name: "no assessment", body: `{"analysis": {"product_name": "BigQuery"}}`, want: schema.ErrMissingAssessment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := fastHTTPEvaluator(server.URL, 0).Evaluate(context.Background(), sampleRequest)

			var apiErr *contract.APIError
			require.ErrorAs(t, err, &apiErr)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestHTTPEvaluator_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"analysis": {"error": "sample is a config file"}}`))
	}))
	defer server.Close()

	result, err := fastHTTPEvaluator(server.URL, 0).Evaluate(context.Background(), sampleRequest)

	require.NoError(t, err)
	assert.Equal(t, "sample is a config file", result.Declined)
	assert.NoError(t, result.Validate())
}

func TestHTTPEvaluator_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	evaluator := NewHTTPEvaluator(HTTPOptions{URL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := evaluator.Evaluate(context.Background(), sampleRequest)

	require.Error(t, err)
	assert.True(t, contract.IsTimeoutError(err), err.Error())
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.True(t, isTimeout(&contract.APIError{Err: context.DeadlineExceeded}))
	assert.False(t, isTimeout(errors.New("connection refused")))
}
