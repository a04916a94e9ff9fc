package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run mocks the Run method. Variadic args are flattened into the call.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	callArgs := []any{ctx, repoPath}
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)
	var out []byte
	if ret.Get(0) != nil {
		out = ret.Get(0).([]byte)
	}
	return out, ret.Error(1)
}

// IsInsideWorkTree mocks the IsInsideWorkTree method.
func (m *MockGitClient) IsInsideWorkTree(ctx context.Context, dir string) (bool, error) {
	args := m.Called(ctx, dir)
	return args.Bool(0), args.Error(1)
}

// GetRemoteURL mocks the GetRemoteURL method.
func (m *MockGitClient) GetRemoteURL(ctx context.Context, dir string) (string, error) {
	args := m.Called(ctx, dir)
	return args.String(0), args.Error(1)
}

// GetBranchName mocks the GetBranchName method.
func (m *MockGitClient) GetBranchName(ctx context.Context, dir string) (string, error) {
	args := m.Called(ctx, dir)
	return args.String(0), args.Error(1)
}

// GetRepoRoot mocks the GetRepoRoot method.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	args := m.Called(ctx, contextPath)
	return args.String(0), args.Error(1)
}

// GetFileLog mocks the GetFileLog method.
func (m *MockGitClient) GetFileLog(ctx context.Context, repoPath string, relPath string) ([]byte, error) {
	args := m.Called(ctx, repoPath, relPath)
	var out []byte
	if args.Get(0) != nil {
		out = args.Get(0).([]byte)
	}
	return out, args.Error(1)
}

// Clone mocks the Clone method.
func (m *MockGitClient) Clone(ctx context.Context, url string, dest string) error {
	return m.Called(ctx, url, dest).Error(0)
}

// Pull mocks the Pull method.
func (m *MockGitClient) Pull(ctx context.Context, repoPath string, branch string) error {
	return m.Called(ctx, repoPath, branch).Error(0)
}
