package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// validGitURLPattern matches clone URLs the syncer is willing to pass to git.
	validGitURLPattern = regexp.MustCompile(`^(https?://|git@|ssh://|file://)[\w.\-@:/%]+$`)

	// dangerousCharsPattern matches characters that could be used for command injection.
	dangerousCharsPattern = regexp.MustCompile(`[;&|$` + "`" + `\n\r\\]`)

	// repoSegmentPattern limits owner and repo names to what GitHub allows.
	repoSegmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

// URL column names accepted in source CSVs, in lookup order.
var urlColumns = []string{"github_link", "indexed_source_url", "url"}

// SampleSource is one row of a source CSV, resolved to a local clone when synced.
type SampleSource struct {
	URL            string
	Owner          string
	Repo           string
	Branch         string
	RelPath        string
	RegionTag      string
	RepositoryName string
	LocalPath      string
}

// RepoKey identifies the clone a source belongs to.
func (s SampleSource) RepoKey() string {
	return s.Owner + "/" + s.Repo
}

// ParseGitHubBlobURL splits https://github.com/{owner}/{repo}/blob/{branch}/{path}.
// URLs without the blob segment are accepted when they name a path after the repo,
// with an empty branch.
func ParseGitHubBlobURL(raw string) (SampleSource, error) {
	raw = strings.TrimSpace(raw)
	if dangerousCharsPattern.MatchString(raw) {
		return SampleSource{}, fmt.Errorf("URL contains unsafe characters: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return SampleSource{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return SampleSource{}, fmt.Errorf("unsupported URL scheme in %q", raw)
	}
	if !strings.EqualFold(u.Host, "github.com") {
		return SampleSource{}, fmt.Errorf("not a github.com URL: %q", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 {
		return SampleSource{}, fmt.Errorf("URL %q does not name a file", raw)
	}
	src := SampleSource{URL: raw, Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	if !repoSegmentPattern.MatchString(src.Owner) || !repoSegmentPattern.MatchString(src.Repo) {
		return SampleSource{}, fmt.Errorf("invalid owner/repo in %q", raw)
	}

	rest := parts[2:]
	if (rest[0] == "blob" || rest[0] == "tree") && len(rest) >= 3 {
		src.Branch = rest[1]
		rest = rest[2:]
	}
	src.RelPath = strings.Join(rest, "/")
	if src.RelPath == "" || strings.Contains("/"+src.RelPath+"/", "/../") {
		return SampleSource{}, fmt.Errorf("URL %q has an invalid file path", raw)
	}
	src.RepositoryName = src.RepoKey()
	return src, nil
}

// ReadSourcesCSV reads a header-first CSV of sample URLs. The URL column is the first
// of github_link, indexed_source_url or url that exists, otherwise column 0.
// region_tag and repository_name are picked up when present. Unparseable rows are
// returned as warnings, not errors.
func ReadSourcesCSV(r io.Reader) ([]SampleSource, []error, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	urlCol := 0
	for _, name := range urlColumns {
		if i, ok := index[name]; ok {
			urlCol = i
			break
		}
	}
	field := func(rec []string, name string) string {
		if i, ok := index[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var (
		sources  []SampleSource
		warnings []error
	)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		if urlCol >= len(rec) || strings.TrimSpace(rec[urlCol]) == "" {
			continue
		}
		src, err := ParseGitHubBlobURL(rec[urlCol])
		if err != nil {
			warnings = append(warnings, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		src.RegionTag = field(rec, "region_tag")
		if name := field(rec, "repository_name"); name != "" {
			src.RepositoryName = name
		}
		sources = append(sources, src)
	}
	return sources, warnings, nil
}

// RepoSyncer clones or updates the repositories named by a source CSV.
type RepoSyncer struct {
	client      contract.GitClient
	cloneDir    string
	concurrency int
	maxRetries  uint64
	baseURL     string
	log         *logrus.Entry
}

// NewRepoSyncer creates a syncer that keeps clones under cloneDir/{owner}/{repo}.
func NewRepoSyncer(client contract.GitClient, cloneDir string, concurrency, maxRetries int, log *logrus.Entry) *RepoSyncer {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &RepoSyncer{
		client:      client,
		cloneDir:    cloneDir,
		concurrency: concurrency,
		maxRetries:  uint64(maxRetries),
		baseURL:     "https://github.com",
		log:         log,
	}
}

// ExpandCSV reads the source CSV at path and syncs the repositories it references.
func (s *RepoSyncer) ExpandCSV(ctx context.Context, path string) ([]SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sources, warnings, err := ReadSourcesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range warnings {
		s.log.WithField("csv", path).Warn(w.Error())
	}
	s.log.WithFields(logrus.Fields{"csv": path, "sources": len(sources)}).Info("repo.csv.loaded")
	return s.Sync(ctx, sources)
}

// Sync clones or updates every repository referenced by sources, in parallel.
// Sources of repositories that fail to sync are dropped with a warning; the
// returned sources carry LocalPath.
func (s *RepoSyncer) Sync(ctx context.Context, sources []SampleSource) ([]SampleSource, error) {
	branches := make(map[string]string)
	var order []string
	for _, src := range sources {
		if _, ok := branches[src.RepoKey()]; !ok {
			branches[src.RepoKey()] = src.Branch
			order = append(order, src.RepoKey())
		}
	}

	failed := make([]bool, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range order {
		g.Go(func() error {
			if err := s.syncRepo(gctx, key, branches[key]); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.WithFields(logrus.Fields{"repo": key, "error": err}).Warn("repo.sync.failed")
				failed[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bad := make(map[string]bool)
	for i, key := range order {
		if failed[i] {
			bad[key] = true
		}
	}
	out := make([]SampleSource, 0, len(sources))
	for _, src := range sources {
		if bad[src.RepoKey()] {
			continue
		}
		src.LocalPath = filepath.Join(s.repoDir(src), filepath.FromSlash(src.RelPath))
		out = append(out, src)
	}
	return out, nil
}

func (s *RepoSyncer) repoDir(src SampleSource) string {
	return filepath.Join(s.cloneDir, src.Owner, src.Repo)
}

func (s *RepoSyncer) syncRepo(ctx context.Context, key, branch string) error {
	owner, repo, _ := strings.Cut(key, "/")
	dest := filepath.Join(s.cloneDir, owner, repo)
	cloneURL := fmt.Sprintf("%s/%s/%s.git", s.baseURL, owner, repo)
	if !validGitURLPattern.MatchString(cloneURL) {
		return fmt.Errorf("refusing to clone %q", cloneURL)
	}

	log := s.log.WithFields(logrus.Fields{"repo": key, "dest": dest})
	start := time.Now()

	op := func() error {
		if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
			log.Debug("repo.pull.start")
			return s.client.Pull(ctx, dest, branch)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return backoff.Permanent(err)
		}
		// A failed clone can leave a partial directory behind.
		_ = os.RemoveAll(dest)
		log.Debug("repo.clone.start")
		if err := s.client.Clone(ctx, cloneURL, dest); err != nil {
			return err
		}
		if branch != "" {
			return s.client.Pull(ctx, dest, branch)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return err
	}
	log.WithField("duration", time.Since(start)).Info("repo.sync.done")
	return nil
}
