// Package core has the sample analysis pipeline: provenance, tagging, categorization,
// per-file orchestration and the concurrent batch driver.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// githubRemotePattern recovers owner and repo from https, ssh and scp-style remotes.
var githubRemotePattern = regexp.MustCompile(`github\.com(?:[:/]|@)(.*?)/(.*?)(?:\.git)?$`)

// Log record separators, matching contract.FileLogFormat.
const (
	unitSep   = "\x1f"
	recordSep = "\x1e"
)

// GitInfoProvider resolves the provenance of a file.
// Every call runs independent git subprocesses, so a provider is safe for concurrent use.
type GitInfoProvider struct {
	client contract.GitClient
}

// NewGitInfoProvider creates a provider backed by client.
func NewGitInfoProvider(client contract.GitClient) *GitInfoProvider {
	return &GitInfoProvider{client: client}
}

// Execute returns the GitInfo of filePath. It fails with *contract.GitRepositoryError
// when the file is outside a working tree. A missing remote is not an error here:
// the returned info has an empty GithubLink and the caller decides.
func (p *GitInfoProvider) Execute(ctx context.Context, filePath string) (schema.GitInfo, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}
	dir := filepath.Dir(absPath)

	// --- 1. Working tree membership ---
	inside, err := p.client.IsInsideWorkTree(ctx, dir)
	if err != nil || !inside {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}

	var info schema.GitInfo

	// --- 2. Remote ---
	remote, err := p.client.GetRemoteURL(ctx, dir)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}
	info.GithubOwner, info.GithubRepo = ParseGitHubRemote(remote)

	// --- 3. Branch ---
	info.BranchName, err = p.client.GetBranchName(ctx, dir)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}

	// --- 4. Root and link ---
	root, err := p.client.GetRepoRoot(ctx, dir)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}
	relPath, err := relativeToRoot(root, absPath)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}
	if info.GithubOwner != "" && info.GithubRepo != "" {
		info.GithubLink = BuildGitHubLink(info.GithubOwner, info.GithubRepo, info.BranchName, relPath)
	}

	// --- 5. History ---
	out, err := p.client.GetFileLog(ctx, root, relPath)
	if err != nil {
		return schema.GitInfo{}, &contract.GitRepositoryError{Path: filePath, Err: err}
	}
	info.CommitHistory = ParseFileLog(out)
	info.LastUpdated = lastUpdated(info.CommitHistory)

	// --- 6. Filesystem metadata ---
	info.Metadata = fileMetadata(absPath, info.CommitHistory)

	return info, nil
}

// ParseGitHubRemote extracts owner and repo from a GitHub remote URL.
// Non-GitHub or empty remotes return empty strings.
func ParseGitHubRemote(remote string) (owner, repo string) {
	m := githubRemotePattern.FindStringSubmatch(strings.TrimSpace(remote))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// BuildGitHubLink returns the browsable blob URL of a file.
func BuildGitHubLink(owner, repo, branch, relPath string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", owner, repo, branch, filepath.ToSlash(relPath))
}

// ParseFileLog parses the output of contract.FileLogFormat, newest commit first.
// Malformed records are skipped.
func ParseFileLog(out []byte) []schema.Commit {
	commits := []schema.Commit{}
	for record := range strings.SplitSeq(string(out), recordSep) {
		record = strings.Trim(record, "\r\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, unitSep, 5)
		if len(fields) != 5 {
			continue
		}
		commits = append(commits, schema.Commit{
			Hash:        fields[0],
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Date:        fields[3],
			Message:     fields[4],
		})
	}
	return commits
}

// lastUpdated returns the commit-local date of the newest commit.
func lastUpdated(commits []schema.Commit) *string {
	if len(commits) == 0 {
		return nil
	}
	t, err := time.Parse(time.RFC3339, commits[0].Date)
	if err != nil {
		if len(commits[0].Date) < 10 {
			return nil
		}
		d := commits[0].Date[:10]
		return &d
	}
	d := t.Format(time.DateOnly)
	return &d
}

func relativeToRoot(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel), nil
	}
	// git reports the resolved root, so compare resolved paths too (e.g. /tmp -> /private/tmp)
	resolvedRoot, err1 := filepath.EvalSymlinks(root)
	resolvedPath, err2 := filepath.EvalSymlinks(absPath)
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("file %s is not under repository root %s", absPath, root)
	}
	rel, err = filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file %s is not under repository root %s", absPath, root)
	}
	return filepath.ToSlash(rel), nil
}

func fileMetadata(absPath string, commits []schema.Commit) schema.FileMetadata {
	var md schema.FileMetadata
	if st, err := os.Stat(absPath); err == nil {
		md.Size = st.Size()
		md.Modified = unixSeconds(st.ModTime())
		md.Created = md.Modified
	}
	if len(commits) > 0 {
		if t, err := time.Parse(time.RFC3339, commits[len(commits)-1].Date); err == nil {
			md.Created = unixSeconds(t)
		}
	}
	return md
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
