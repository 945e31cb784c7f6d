package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validKey = "rnd_abcdefghijklmnop"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvAPIURL, EnvTimeout, EnvPollInterval, EnvGitHubToken, EnvConfigFile} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Failed to chmod config: %v", err)
	}
	return path
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestBuild_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Build("api", "", Flags{APIKey: strPtr(validKey)}, nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if cfg.Timeout != 600*time.Second {
		t.Errorf("Expected default timeout 600s, got %v", cfg.Timeout)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("Expected default poll interval 5s, got %v", cfg.PollInterval)
	}
	if cfg.APIURL != "https://api.render.com/v1" {
		t.Errorf("Expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.Wait || cfg.ClearCache {
		t.Error("Expected wait and clear cache to default to false")
	}
}

func TestBuild_ZeroTimeout(t *testing.T) {
	clearEnv(t)

	cfg, err := Build("api", "", Flags{APIKey: strPtr(validKey), Timeout: intPtr(0)}, nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Expected zero timeout, got %v", cfg.Timeout)
	}

	t.Setenv(EnvTimeout, "0")
	cfg, err = Build("api", "", Flags{APIKey: strPtr(validKey)}, nil)
	if err != nil {
		t.Fatalf("Build() with env failed: %v", err)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Expected zero timeout from env, got %v", cfg.Timeout)
	}
}

func TestBuild_Precedence(t *testing.T) {
	file := &File{
		APIURL:       "https://file.example.com/v1",
		APIKey:       "rnd_fromfile_0123456789",
		Timeout:      120,
		PollInterval: 10,
	}

	tests := []struct {
		name        string
		env         map[string]string
		flags       Flags
		wantKey     string
		wantTimeout time.Duration
		wantURL     string
	}{
		{
			name:        "file over default",
			wantKey:     "rnd_fromfile_0123456789",
			wantTimeout: 120 * time.Second,
			wantURL:     "https://file.example.com/v1",
		},
		{
			name:        "env over file",
			env:         map[string]string{EnvAPIKey: "rnd_fromenv_0123456789", EnvTimeout: "300", EnvAPIURL: "https://env.example.com/v1"},
			wantKey:     "rnd_fromenv_0123456789",
			wantTimeout: 300 * time.Second,
			wantURL:     "https://env.example.com/v1",
		},
		{
			name:        "flag over env",
			env:         map[string]string{EnvAPIKey: "rnd_fromenv_0123456789", EnvTimeout: "300"},
			flags:       Flags{APIKey: strPtr("rnd_fromflag_0123456789"), Timeout: intPtr(30), APIURL: strPtr("http://127.0.0.1:8080/v1")},
			wantKey:     "rnd_fromflag_0123456789",
			wantTimeout: 30 * time.Second,
			wantURL:     "http://127.0.0.1:8080/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Build("api", "", tt.flags, file)
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			if cfg.APIKey != tt.wantKey {
				t.Errorf("APIKey = %q, want %q", cfg.APIKey, tt.wantKey)
			}
			if cfg.Timeout != tt.wantTimeout {
				t.Errorf("Timeout = %v, want %v", cfg.Timeout, tt.wantTimeout)
			}
			if cfg.APIURL != tt.wantURL {
				t.Errorf("APIURL = %q, want %q", cfg.APIURL, tt.wantURL)
			}
			if cfg.PollInterval != 10*time.Second {
				t.Errorf("Expected poll interval from file, got %v", cfg.PollInterval)
			}
		})
	}
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		svc     string
		commit  string
		flags   Flags
		env     map[string]string
		wantMsg string
	}{
		{"missing api key", "api", "", Flags{}, nil, "api key is required"},
		{"placeholder api key", "api", "", Flags{APIKey: strPtr("rnd_xxx")}, nil, "placeholder"},
		{"empty service name", "", "", Flags{APIKey: strPtr(validKey)}, nil, "service name cannot be empty"},
		{"option-like commit", "api", "--upload-pack=x", Flags{APIKey: strPtr(validKey)}, nil, "cannot start with '-'"},
		{"negative timeout", "api", "", Flags{APIKey: strPtr(validKey), Timeout: intPtr(-1)}, nil, "timeout cannot be negative"},
		{"negative poll interval", "api", "", Flags{APIKey: strPtr(validKey), PollInterval: intPtr(-1)}, nil, "poll interval must be a positive"},
		{"bad api url", "api", "", Flags{APIKey: strPtr(validKey), APIURL: strPtr("ftp://example.com")}, nil, "http or https"},
		{"non-numeric env timeout", "api", "", Flags{APIKey: strPtr(validKey)}, map[string]string{EnvTimeout: "ten"}, EnvTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Build(tt.svc, tt.commit, tt.flags, nil)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestBuild_CarriesFlags(t *testing.T) {
	clearEnv(t)

	cfg, err := Build("api", "HEAD~1", Flags{APIKey: strPtr(validKey), Wait: true, ClearCache: true, Verbose: true}, nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if !cfg.Wait || !cfg.ClearCache || !cfg.Verbose {
		t.Errorf("Expected boolean flags to be carried, got %+v", cfg)
	}
	if cfg.ServiceName != "api" || cfg.Commit != "HEAD~1" {
		t.Errorf("Unexpected name or commit: %q %q", cfg.ServiceName, cfg.Commit)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api_url: https://api.render.com/v1
api_key: rnd_abcdefghijklmnop
timeout: 900
poll_interval: 3
`, 0600)

	file, warnings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings for a 0600 file, got %v", warnings)
	}
	if file.Timeout != 900 || file.PollInterval != 3 || file.APIKey != validKey {
		t.Errorf("Unexpected file contents: %+v", file)
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := writeConfig(t, "", 0600)

	file, _, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Expected empty file to load, got: %v", err)
	}
	if *file != (File{}) {
		t.Errorf("Expected zero file, got %+v", file)
	}
}

func TestLoadFile_WorldReadableWithKey(t *testing.T) {
	path := writeConfig(t, "api_key: rnd_abcdefghijklmnop\n", 0644)

	_, warnings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "world-readable") {
		t.Errorf("Expected world-readable warning, got %v", warnings)
	}
}

func TestLoadFile_WorldReadableWithoutSecrets(t *testing.T) {
	path := writeConfig(t, "timeout: 60\n", 0644)

	_, warnings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings without secrets, got %v", warnings)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown key", "timeout: 60\npoll: 3\n", "failed to parse YAML config"},
		{"wrong type", "timeout: soon\n", "failed to parse YAML config"},
		{"negative timeout", "timeout: -5\n", "timeout cannot be negative"},
		{"bad url", "api_url: not a url\n", "api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content, 0600)
			_, _, err := LoadFile(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}

	if _, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestValidateFile(t *testing.T) {
	problems := ValidateFile(File{
		APIURL:       "ftp://example.com",
		APIKey:       "short",
		GitHubToken:  "ghp with space",
		Timeout:      -1,
		PollInterval: -1,
	})
	if len(problems) != 5 {
		t.Errorf("Expected 5 problems, got %d: %v", len(problems), problems)
	}

	if problems := ValidateFile(File{}); len(problems) != 0 {
		t.Errorf("Expected empty file to be valid, got %v", problems)
	}
}

func TestLocate(t *testing.T) {
	clearEnv(t)

	if got := Locate("/explicit/path.yaml"); got != "/explicit/path.yaml" {
		t.Errorf("Expected explicit path, got %q", got)
	}

	t.Setenv(EnvConfigFile, "/from/env.yaml")
	if got := Locate(""); got != "/from/env.yaml" {
		t.Errorf("Expected env path, got %q", got)
	}
}

func TestSecrets(t *testing.T) {
	cfg := Config{APIKey: "k", GitHubToken: "g"}
	secrets := cfg.Secrets()
	if len(secrets) != 2 || secrets[0] != "k" || secrets[1] != "g" {
		t.Errorf("Unexpected secrets %v", secrets)
	}
}
