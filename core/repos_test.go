package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubBlobURL(t *testing.T) {
	src, err := ParseGitHubBlobURL(" https://github.com/GoogleCloudPlatform/python-docs-samples/blob/main/storage/cloud-client/quickstart.py ")

	require.NoError(t, err)
	assert.Equal(t, "GoogleCloudPlatform", src.Owner)
	assert.Equal(t, "python-docs-samples", src.Repo)
	assert.Equal(t, "main", src.Branch)
	assert.Equal(t, "storage/cloud-client/quickstart.py", src.RelPath)
	assert.Equal(t, "GoogleCloudPlatform/python-docs-samples", src.RepositoryName)
}

func TestParseGitHubBlobURL_WithoutBlob(t *testing.T) {
	src, err := ParseGitHubBlobURL("https://github.com/acme/widgets/src/main.go")

	require.NoError(t, err)
	assert.Empty(t, src.Branch)
	assert.Equal(t, "src/main.go", src.RelPath)
}

func TestParseGitHubBlobURL_Rejects(t *testing.T) {
	for _, raw := range []string{
		"https://gitlab.com/acme/widgets/blob/main/a.py",
		"ftp://github.com/acme/widgets/blob/main/a.py",
		"https://github.com/acme/widgets",
		"https://github.com/acme/widgets/blob/main/../../etc/passwd",
		"https://github.com/acme;rm -rf/widgets/blob/main/a.py",
		"https://github.com/acme/wid$gets/blob/main/a.py",
		"not a url",
	} {
		_, err := ParseGitHubBlobURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestReadSourcesCSV(t *testing.T) {
	csv := `repository_name,indexed_source_url,region_tag
GoogleCloudPlatform/python-docs-samples,https://github.com/GoogleCloudPlatform/python-docs-samples/blob/main/storage/quickstart.py,storage_quickstart
acme/widgets,https://example.com/not/github.py,widget
,,
googleapis/java-spanner,https://github.com/googleapis/java-spanner/blob/main/samples/Quickstart.java,
`
	sources, warnings, err := ReadSourcesCSV(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "storage_quickstart", sources[0].RegionTag)
	assert.Equal(t, "storage/quickstart.py", sources[0].RelPath)
	assert.Equal(t, "googleapis/java-spanner", sources[1].RepositoryName)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "line 3")
}

func TestReadSourcesCSV_FirstColumnFallback(t *testing.T) {
	csv := "link\nhttps://github.com/acme/widgets/blob/dev/a.py\n"

	sources, warnings, err := ReadSourcesCSV(strings.NewReader(csv))

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, sources, 1)
	assert.Equal(t, "dev", sources[0].Branch)
	assert.Equal(t, "acme/widgets", sources[0].RepositoryName)
}

func TestReadSourcesCSV_Empty(t *testing.T) {
	sources, warnings, err := ReadSourcesCSV(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, sources)
	assert.Empty(t, warnings)
}

func TestRepoSyncer_Sync(t *testing.T) {
	cloneDir := t.TempDir()
	// an existing clone is updated instead of cloned
	require.NoError(t, os.MkdirAll(filepath.Join(cloneDir, "acme", "existing", ".git"), 0o755))

	client := &contract.MockGitClient{}
	client.On("Clone", mock.Anything, "https://github.com/acme/widgets.git", filepath.Join(cloneDir, "acme", "widgets")).Return(nil).Once()
	client.On("Pull", mock.Anything, filepath.Join(cloneDir, "acme", "widgets"), "main").Return(nil).Once()
	client.On("Pull", mock.Anything, filepath.Join(cloneDir, "acme", "existing"), "dev").Return(nil).Once()
	client.On("Clone", mock.Anything, "https://github.com/acme/broken.git", mock.Anything).Return(errors.New("repository not found"))

	sources := []SampleSource{
		{Owner: "acme", Repo: "widgets", Branch: "main", RelPath: "a/one.py"},
		{Owner: "acme", Repo: "widgets", Branch: "main", RelPath: "b/two.py"},
		{Owner: "acme", Repo: "existing", Branch: "dev", RelPath: "three.go"},
		{Owner: "acme", Repo: "broken", RelPath: "four.py"},
	}

	synced, err := NewRepoSyncer(client, cloneDir, 2, 0, nil).Sync(context.Background(), sources)

	require.NoError(t, err)
	require.Len(t, synced, 3)
	assert.Equal(t, filepath.Join(cloneDir, "acme", "widgets", "a", "one.py"), synced[0].LocalPath)
	assert.Equal(t, filepath.Join(cloneDir, "acme", "existing", "three.go"), synced[2].LocalPath)
	client.AssertExpectations(t)
}

func TestRepoSyncer_RetriesClone(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("Clone", mock.Anything, "https://github.com/acme/flaky.git", mock.Anything).Return(errors.New("timeout")).Once()
	client.On("Clone", mock.Anything, "https://github.com/acme/flaky.git", mock.Anything).Return(nil).Once()

	synced, err := NewRepoSyncer(client, t.TempDir(), 1, 2, nil).Sync(context.Background(), []SampleSource{
		{Owner: "acme", Repo: "flaky", RelPath: "x.py"},
	})

	require.NoError(t, err)
	assert.Len(t, synced, 1)
	client.AssertExpectations(t)
}

func TestRepoSyncer_ExpandCSV(t *testing.T) {
	cloneDir := t.TempDir()
	csvPath := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("github_link,region_tag\nhttps://github.com/acme/widgets/blob/main/a.py,widget_a\n"), 0o644))

	client := &contract.MockGitClient{}
	client.On("Clone", mock.Anything, "https://github.com/acme/widgets.git", mock.Anything).Return(nil)
	client.On("Pull", mock.Anything, mock.Anything, "main").Return(nil)

	synced, err := NewRepoSyncer(client, cloneDir, 1, 0, nil).ExpandCSV(context.Background(), csvPath)

	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, "widget_a", synced[0].RegionTag)
	assert.Equal(t, filepath.Join(cloneDir, "acme", "widgets", "a.py"), synced[0].LocalPath)
}
