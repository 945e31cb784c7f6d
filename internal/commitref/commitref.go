// Package commitref turns a user-supplied commit ref (a branch, a tag or a
// short SHA) into the full commit id the deploy endpoint expects.
package commitref

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"renderdeploy/internal/security"
	"renderdeploy/pkg/cmdutil"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitTimeout bounds local git invocations
const GitTimeout = 10 * time.Second

// Source records where a commit id came from
type Source string

const (
	SourceNone    Source = "none"
	SourceLiteral Source = "literal"
	SourceGitHub  Source = "github"
	SourceGit     Source = "git"
)

// Resolved is the outcome of resolving a ref.
type Resolved struct {
	Ref      string
	CommitID string
	Source   Source
}

// Resolver resolves refs against GitHub first and the local checkout second.
// The local checkout is only trusted with short SHAs, and only when one of
// its remotes is the service's repo.
type Resolver struct {
	github  *github.Client
	workDir string
	useGit  bool
	logger  *slog.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithGitHubToken enables lookups through the GitHub API.
func WithGitHubToken(token string) Option {
	return func(r *Resolver) {
		r.github = createGitHubClient(token)
	}
}

// WithGitHubClient sets a preconfigured GitHub client.
func WithGitHubClient(c *github.Client) Option {
	return func(r *Resolver) {
		r.github = c
	}
}

// WithWorkDir sets the directory local git commands run in.
func WithWorkDir(dir string) Option {
	return func(r *Resolver) {
		r.workDir = dir
	}
}

// WithoutLocalGit disables the local checkout fallback.
func WithoutLocalGit() Option {
	return func(r *Resolver) {
		r.useGit = false
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		useGit: true,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// createGitHubClient creates an authenticated GitHub client
func createGitHubClient(token string) *github.Client {
	if token == "" {
		return nil
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return github.NewClient(tc)
}

// Resolve returns the full commit id for ref in the service's repo.
// An empty ref means the head of the service's branch and resolves to an
// empty commit id. Branch and tag names are only resolved through GitHub;
// local refs may be stale. Anything not resolved is passed through
// unchanged so the platform gets the final say.
func (r *Resolver) Resolve(ctx context.Context, repoURL, ref string) (Resolved, error) {
	if ref == "" {
		return Resolved{Source: SourceNone}, nil
	}
	if err := security.ValidateCommitRef(ref); err != nil {
		return Resolved{}, fmt.Errorf("invalid commit %q: %w", ref, err)
	}
	if security.IsFullCommitSHA(ref) {
		return Resolved{Ref: ref, CommitID: ref, Source: SourceLiteral}, nil
	}

	if r.github != nil {
		if owner, repo, err := security.ParseGitHubRepo(repoURL); err == nil {
			sha, err := r.resolveGitHub(ctx, owner, repo, ref)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Ref: ref, CommitID: sha, Source: SourceGitHub}, nil
		}
		r.logger.Debug("Repository is not on GitHub, skipping API lookup", "repo", repoURL)
	}

	if r.useGit && security.IsShortCommitSHA(ref) {
		sha, err := r.resolveLocal(ctx, repoURL, ref)
		if err == nil {
			return Resolved{Ref: ref, CommitID: sha, Source: SourceGit}, nil
		}
		r.logger.Debug("Local git lookup failed", "ref", ref, "error", err)
	}

	return Resolved{Ref: ref, CommitID: ref, Source: SourceLiteral}, nil
}

func (r *Resolver) resolveGitHub(ctx context.Context, owner, repo, ref string) (string, error) {
	r.logger.Debug("Resolving commit on GitHub", "owner", owner, "repo", repo, "ref", ref)

	sha, _, err := r.github.Repositories.GetCommitSHA1(ctx, owner, repo, ref, "")
	if err != nil {
		return "", fmt.Errorf("resolving %q on github.com/%s/%s: %w", ref, owner, repo, err)
	}
	if !security.IsFullCommitSHA(sha) {
		return "", fmt.Errorf("github returned an unexpected commit id %q for %q", sha, ref)
	}
	return sha, nil
}

func (r *Resolver) resolveLocal(ctx context.Context, repoURL, ref string) (string, error) {
	inside, err := cmdutil.Output(ctx, r.workDir, GitTimeout, []string{"git", "rev-parse", "--is-inside-work-tree"})
	if err != nil || inside != "true" {
		return "", fmt.Errorf("not inside a git work tree")
	}

	remotes, err := cmdutil.Output(ctx, r.workDir, GitTimeout, []string{"git", "remote", "-v"})
	if err != nil {
		return "", fmt.Errorf("listing remotes: %w", err)
	}
	if !hasRemote(remotes, repoURL) {
		return "", fmt.Errorf("no remote of this checkout points at %q", repoURL)
	}

	cmd := []string{"git", "rev-parse", "--verify", ref + "^{commit}"}
	r.logger.Debug("Resolving commit locally", "command", cmdutil.FormatCommand(cmd))

	sha, err := cmdutil.Output(ctx, r.workDir, GitTimeout, cmd)
	if err != nil {
		return "", err
	}
	if !security.IsFullCommitSHA(sha) {
		return "", fmt.Errorf("git returned an unexpected commit id %q", sha)
	}
	// A branch or tag that happens to look like hex wins over the SHA in git.
	if !strings.HasPrefix(sha, ref) {
		return "", fmt.Errorf("%q names a ref, not a commit", ref)
	}
	return sha, nil
}

// hasRemote reports whether any URL in `git remote -v` output is repoURL.
func hasRemote(remotes, repoURL string) bool {
	want := normalizeRepoURL(repoURL)
	if want == "" {
		return false
	}
	for _, line := range strings.Split(remotes, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && normalizeRepoURL(fields[1]) == want {
			return true
		}
	}
	return false
}

// normalizeRepoURL reduces https, ssh and scp-style git URLs to
// host/owner/repo so the same repository compares equal. Local paths
// normalize to "".
func normalizeRepoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	var host, path string

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host, path = u.Hostname(), u.Path
	} else if at := strings.Index(raw, ":"); at > 0 && !strings.Contains(raw[:at], "/") {
		host, path = raw[:at], raw[at+1:]
		if i := strings.LastIndex(host, "@"); i >= 0 {
			host = host[i+1:]
		}
	} else {
		return ""
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	if host == "" || path == "" {
		return ""
	}
	return strings.ToLower(host + "/" + path)
}
