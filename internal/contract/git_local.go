package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// FileLogFormat is the pretty format used for per-file history.
// Fields are separated by the ASCII unit separator and commits by the record separator,
// so commit subjects can contain any printable character.
const FileLogFormat = "--pretty=format:%H%x1f%an%x1f%ae%x1f%ad%x1f%s%x1e"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// IsInsideWorkTree implements the GitClient interface.
func (c *LocalGitClient) IsInsideWorkTree(ctx context.Context, dir string) (bool, error) {
	out, err := c.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// GetRemoteURL implements the GitClient interface.
// git exits 1 when the key is unset, which is reported as an empty URL.
func (c *LocalGitClient) GetRemoteURL(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "config", "--get", "remote.origin.url")
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("git command failed in %q: %w", dir, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GetBranchName implements the GitClient interface.
func (c *LocalGitClient) GetBranchName(ctx context.Context, dir string) (string, error) {
	out, err := c.Run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetFileLog implements the GitClient interface.
func (c *LocalGitClient) GetFileLog(ctx context.Context, repoPath string, relPath string) ([]byte, error) {
	args := []string{
		"log",
		"--follow",
		"--date=iso-strict",
		FileLogFormat,
		"--",
		relPath,
	}
	return c.Run(ctx, repoPath, args...)
}

// Clone implements the GitClient interface.
func (c *LocalGitClient) Clone(ctx context.Context, url string, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--quiet", url, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone %s failed: %s: %w", url, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Pull implements the GitClient interface.
func (c *LocalGitClient) Pull(ctx context.Context, repoPath string, branch string) error {
	if _, err := c.Run(ctx, repoPath, "fetch", "--quiet", "origin"); err != nil {
		return err
	}
	if branch != "" {
		if _, err := c.Run(ctx, repoPath, "checkout", "--quiet", branch); err != nil {
			return err
		}
	}
	_, err := c.Run(ctx, repoPath, "pull", "--quiet", "--ff-only")
	return err
}
