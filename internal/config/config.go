// Package config resolves the settings of one renderdeploy invocation from
// flags, the environment and an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"renderdeploy/internal/render"
	"renderdeploy/internal/security"
	"renderdeploy/pkg/fileutil"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName     = "renderdeploy.yaml"
	DefaultTimeout      = 600 // seconds
	DefaultPollInterval = 5   // seconds
)

// Environment variables consulted when a flag is not given
const (
	EnvAPIKey       = "RENDER_API_KEY"
	EnvAPIURL       = "RENDERDEPLOY_API_URL"
	EnvTimeout      = "RENDERDEPLOY_TIMEOUT"
	EnvPollInterval = "RENDERDEPLOY_POLL_INTERVAL"
	EnvGitHubToken  = "GITHUB_TOKEN"
	EnvConfigFile   = "RENDERDEPLOY_CONFIG_FILE"
)

// File is the on-disk YAML configuration. Every field is optional.
type File struct {
	APIURL       string `yaml:"api_url"`
	APIKey       string `yaml:"api_key"`
	GitHubToken  string `yaml:"github_token"`
	Timeout      int    `yaml:"timeout"`       // seconds
	PollInterval int    `yaml:"poll_interval"` // seconds
}

// Flags carries command-line values. A nil pointer means the flag was not
// given, so the environment and the config file get a say.
type Flags struct {
	APIURL       *string
	APIKey       *string
	GitHubToken  *string
	Timeout      *int
	PollInterval *int
	Wait         bool
	ClearCache   bool
	Verbose      bool
}

// Config is the resolved configuration of one invocation. It is built once
// by Build and passed by value afterwards.
type Config struct {
	ServiceName  string
	Commit       string
	Wait         bool
	ClearCache   bool
	Verbose      bool
	APIURL       string
	APIKey       string
	GitHubToken  string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Locate returns the config file to use: the explicit path if given,
// otherwise the first default location that exists, otherwise "".
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return env
	}
	return fileutil.FindConfigOptional(DefaultFileName)
}

// LoadFile reads and validates a YAML config file. Warnings are problems
// worth telling the user about that do not stop the run.
func LoadFile(path string) (*File, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if problems := ValidateFile(file); len(problems) > 0 {
		return nil, nil, fmt.Errorf("invalid configuration in '%s':\n%s", path, strings.Join(problems, "\n"))
	}

	var warnings []string
	if file.APIKey != "" || file.GitHubToken != "" {
		if err := security.ValidateSecurePermissions(path); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	return &file, warnings, nil
}

// ValidateFile checks a config file's values and returns every problem found
func ValidateFile(file File) []string {
	var problems []string

	if file.APIURL != "" {
		if err := validateAPIURL(file.APIURL); err != nil {
			problems = append(problems, fmt.Sprintf("  - api_url: %v", err))
		}
	}

	if file.APIKey != "" {
		if err := security.ValidateAPIKey(file.APIKey); err != nil {
			problems = append(problems, fmt.Sprintf("  - api_key: %v", err))
		}
	}

	if strings.IndexAny(file.GitHubToken, " \t\n") >= 0 {
		problems = append(problems, "  - github_token: contains whitespace")
	}

	// Zero uses the default
	if file.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("  - timeout cannot be negative, got %d", file.Timeout))
	}
	if file.PollInterval < 0 {
		problems = append(problems, fmt.Sprintf("  - poll_interval must be a positive integer, got %d", file.PollInterval))
	}

	return problems
}

// Build resolves every setting with precedence flag > environment > file >
// default and validates the result. file may be nil.
func Build(name, commit string, flags Flags, file *File) (Config, error) {
	if file == nil {
		file = &File{}
	}

	timeout, err := pickInt(flags.Timeout, EnvTimeout, file.Timeout, DefaultTimeout)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := pickInt(flags.PollInterval, EnvPollInterval, file.PollInterval, DefaultPollInterval)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServiceName:  name,
		Commit:       commit,
		Wait:         flags.Wait,
		ClearCache:   flags.ClearCache,
		Verbose:      flags.Verbose,
		APIURL:       pickString(flags.APIURL, EnvAPIURL, file.APIURL, render.DefaultBaseURL),
		APIKey:       pickString(flags.APIKey, EnvAPIKey, file.APIKey, ""),
		GitHubToken:  pickString(flags.GitHubToken, EnvGitHubToken, file.GitHubToken, ""),
		Timeout:      time.Duration(timeout) * time.Second,
		PollInterval: time.Duration(pollInterval) * time.Second,
	}

	if problems := cfg.validate(); len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration:\n%s", strings.Join(problems, "\n"))
	}

	return cfg, nil
}

func (c Config) validate() []string {
	var problems []string

	if err := security.ValidateServiceName(c.ServiceName); err != nil {
		problems = append(problems, fmt.Sprintf("  - name: %v", err))
	}
	if c.Commit != "" {
		if err := security.ValidateCommitRef(c.Commit); err != nil {
			problems = append(problems, fmt.Sprintf("  - commit: %v", err))
		}
	}
	if err := security.ValidateAPIKey(c.APIKey); err != nil {
		problems = append(problems, fmt.Sprintf("  - %v", err))
	}
	if err := validateAPIURL(c.APIURL); err != nil {
		problems = append(problems, fmt.Sprintf("  - api url: %v", err))
	}
	if c.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("  - timeout cannot be negative, got %d seconds", int64(c.Timeout/time.Second)))
	}
	if c.PollInterval <= 0 {
		problems = append(problems, fmt.Sprintf("  - poll interval must be a positive number of seconds, got %d", int64(c.PollInterval/time.Second)))
	}

	return problems
}

// Secrets returns the credential values that must never reach logs
func (c Config) Secrets() []string {
	return []string{c.APIKey, c.GitHubToken}
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in '%s'", raw)
	}
	return nil
}

func pickString(flag *string, env, file, def string) string {
	if flag != nil {
		return *flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if file != "" {
		return file
	}
	return def
}

func pickInt(flag *int, env string, file, def int) (int, error) {
	if flag != nil {
		return *flag, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer number of seconds, got '%s'", env, v)
		}
		return n, nil
	}
	if file != 0 {
		return file, nil
	}
	return def, nil
}
