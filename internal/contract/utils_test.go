package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    *float64
		expected string
	}{
		{name: "no score", input: nil, expected: UnscoredValue},
		{name: "zero", input: ptr(0), expected: PoorValue},
		{name: "just before fair", input: ptr(49.9), expected: PoorValue},
		{name: "exactly fair", input: ptr(50), expected: FairValue},
		{name: "exactly good", input: ptr(70), expected: GoodValue},
		{name: "just before excellent", input: ptr(84.9), expected: GoodValue},
		{name: "exactly excellent", input: ptr(85), expected: ExcellentValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.input))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	assert.Contains(t, GetColorLabel(ptr(90)), ExcellentValue)
	assert.Equal(t, UnscoredValue, GetColorLabel(nil))
}

func TestShouldIgnore(t *testing.T) {
	excludes := []string{"vendor/", "node_modules/", ".min.js", "_test.go", "*.pb.go", "generated"}

	tests := []struct {
		path     string
		expected bool
	}{
		{"vendor/lib/a.go", true},
		{"samples/node_modules/x/index.js", true},
		{"web/app.min.js", true},
		{"pkg/handler_test.go", true},
		{"api/service.pb.go", true},
		{"src/generated/client.py", true},
		{"snippets/quickstart.py", false},
		{"vendors.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldIgnore(tt.path, excludes))
		})
	}
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.csv")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, path)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.py", TruncatePath("short.py", 20))
	assert.Equal(t, "...ckstart.py", TruncatePath("snippets/quickstart.py", 13))
	assert.Equal(t, "abcdef", TruncatePath("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("sometimes")
	assert.Error(t, err)
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("boom")

	var gitErr *GitRepositoryError
	assert.True(t, errors.As(error(&GitRepositoryError{Path: "a.py", Err: cause}), &gitErr))
	assert.ErrorIs(t, &GitRepositoryError{Path: "a.py", Err: cause}, cause)

	timeout := &APIError{URL: "https://x", Timeout: true}
	assert.True(t, IsTimeoutError(timeout))
	assert.Contains(t, timeout.Error(), "timed out")
	assert.False(t, IsTimeoutError(&APIError{URL: "https://x", StatusCode: 503, Msg: "unavailable"}))
	assert.Contains(t, (&APIError{URL: "https://x", StatusCode: 503, Msg: "unavailable"}).Error(), "503")

	assert.ErrorIs(t, &RepositoryError{Op: "create", Err: cause}, cause)
	assert.ErrorIs(t, &RegionTagError{Path: "a.py", Err: cause}, cause)
	assert.ErrorIs(t, &CodeEvaluatorError{Stage: "parse", Err: cause}, cause)
}
