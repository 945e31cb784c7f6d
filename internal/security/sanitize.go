package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxServiceNameLength bounds service names accepted from the command line
	MaxServiceNameLength = 255

	// MaxCommitRefLength bounds commit refs passed to git and the API
	MaxCommitRefLength = 255
)

var (
	// Safe patterns for validation
	commitRefPattern = regexp.MustCompile(`^[a-zA-Z0-9/_.^~@{}-]+$`)
	fullSHAPattern   = regexp.MustCompile(`^[0-9a-f]{40}$`)
	shortSHAPattern  = regexp.MustCompile(`^[0-9a-f]{7,39}$`)
	githubPathPart   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidateServiceName ensures a service name is safe to send as a query
// parameter and print to a terminal.
func ValidateServiceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if len(name) > MaxServiceNameLength {
		return fmt.Errorf("service name too long (maximum %d characters, got %d)", MaxServiceNameLength, len(name))
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("service name contains control characters")
		}
	}
	return nil
}

// ValidateCommitRef ensures a commit ref is safe for git operations.
// Prevents option injection through refs that start with '-'.
func ValidateCommitRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("commit ref cannot be empty")
	}
	if len(ref) > MaxCommitRefLength {
		return fmt.Errorf("commit ref too long (maximum %d characters)", MaxCommitRefLength)
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("commit ref cannot start with '-'")
	}
	if strings.Contains(ref, "..") {
		return fmt.Errorf("commit ref cannot contain '..'")
	}
	if !commitRefPattern.MatchString(ref) {
		return fmt.Errorf("commit ref contains invalid characters")
	}
	return nil
}

// IsFullCommitSHA reports whether ref is a full lowercase 40-character SHA-1.
func IsFullCommitSHA(ref string) bool {
	return fullSHAPattern.MatchString(ref)
}

// IsShortCommitSHA reports whether ref looks like an abbreviated lowercase
// SHA-1 of at least 7 characters.
func IsShortCommitSHA(ref string) bool {
	return shortSHAPattern.MatchString(ref)
}

// ParseGitHubRepo extracts owner and repository from a GitHub repo URL.
// Accepts https URLs with or without a .git suffix.
func ParseGitHubRepo(rawURL string) (owner, repo string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" || !strings.EqualFold(u.Host, "github.com") {
		return "", "", fmt.Errorf("not a GitHub HTTPS URL: %s", rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid owner/repo format: %s", u.Path)
	}
	owner, repo = parts[0], strings.TrimSuffix(parts[1], ".git")

	if !githubPathPart.MatchString(owner) || !githubPathPart.MatchString(repo) {
		return "", "", fmt.Errorf("URL contains invalid characters or format")
	}
	if strings.HasPrefix(owner, ".") || strings.HasPrefix(repo, ".") {
		return "", "", fmt.Errorf("URL contains invalid characters or format")
	}

	return owner, repo, nil
}
