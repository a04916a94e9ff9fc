package contract

import (
	"context"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/stretchr/testify/mock"
)

// MockEvaluator is a mock implementation of Evaluator.
type MockEvaluator struct {
	mock.Mock
}

var _ Evaluator = &MockEvaluator{}

// Evaluate mocks the Evaluate method.
func (m *MockEvaluator) Evaluate(ctx context.Context, req schema.EvaluationRequest) (schema.EvaluationResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schema.EvaluationResult), args.Error(1)
}

// MockClassifier is a mock implementation of Classifier.
type MockClassifier struct {
	mock.Mock
}

var _ Classifier = &MockClassifier{}

// Classify mocks the Classify method.
func (m *MockClassifier) Classify(ctx context.Context, code string, candidates []schema.Categorization) (schema.Categorization, error) {
	args := m.Called(ctx, code, candidates)
	return args.Get(0).(schema.Categorization), args.Error(1)
}

// MockChatClient is a mock implementation of ChatClient.
type MockChatClient struct {
	mock.Mock
}

var _ ChatClient = &MockChatClient{}

// Complete mocks the Complete method.
func (m *MockChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockSampleStore is a mock implementation of SampleStore.
type MockSampleStore struct {
	mock.Mock
}

var _ SampleStore = &MockSampleStore{}

// RecordExists mocks the RecordExists method.
func (m *MockSampleStore) RecordExists(ctx context.Context, githubLink string, lastUpdated *string) (bool, error) {
	args := m.Called(ctx, githubLink, lastUpdated)
	return args.Bool(0), args.Error(1)
}

// Create mocks the Create method.
func (m *MockSampleStore) Create(ctx context.Context, row schema.Row) error {
	return m.Called(ctx, row).Error(0)
}

// Delete mocks the Delete method.
func (m *MockSampleStore) Delete(ctx context.Context, githubLink string, lastUpdated *string) error {
	return m.Called(ctx, githubLink, lastUpdated).Error(0)
}

// Read mocks the Read method.
func (m *MockSampleStore) Read(ctx context.Context, githubLink string) (*schema.Row, error) {
	args := m.Called(ctx, githubLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.Row), args.Error(1)
}

// List mocks the List method.
func (m *MockSampleStore) List(ctx context.Context) ([]schema.Row, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schema.Row), args.Error(1)
}

// BeginRun mocks the BeginRun method.
func (m *MockSampleStore) BeginRun(ctx context.Context, runUUID string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(ctx, runUUID, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun mocks the EndRun method.
func (m *MockSampleStore) EndRun(ctx context.Context, runID int64, endTime time.Time, summary schema.RunSummary) error {
	return m.Called(ctx, runID, endTime, summary).Error(0)
}

// ListRuns mocks the ListRuns method.
func (m *MockSampleStore) ListRuns(ctx context.Context) ([]schema.RunRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schema.RunRecord), args.Error(1)
}

// GetStatus mocks the GetStatus method.
func (m *MockSampleStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close mocks the Close method.
func (m *MockSampleStore) Close() error {
	return m.Called().Error(0)
}
