package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"
)

// Template names
const (
	StarterConfig = "renderdeploy.yaml"
)

//go:embed renderdeploy.yaml.tmpl
var starterConfig string

// ConfigData holds variables for the starter config template.
type ConfigData struct {
	APIURL       string
	APIKey       string
	GitHubToken  string
	Timeout      int
	PollInterval int
}

// GetTemplatePaths returns the search paths for a user-supplied override
// of the built-in template.
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".tmpl"
	paths := []string{
		filepath.Join(".", "templates", filename),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "renderdeploy", "templates", filename))
	}
	return paths
}

// GetTemplate returns the raw template content by name.
// Templates are loaded in the following order:
// 1. ./templates/<name>.tmpl
// 2. $XDG_CONFIG_HOME/renderdeploy/templates/<name>.tmpl
// 3. the built-in template
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	return starterConfig, nil
}

// RenderConfig renders the starter configuration file.
func RenderConfig(data ConfigData) (string, error) {
	tmplContent, err := GetTemplate(StarterConfig)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(StarterConfig).Option("missingkey=error").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// WriteConfig renders the starter configuration to path with owner-only
// permissions. An existing file is kept unless force is set.
func WriteConfig(path string, data ConfigData, force bool) error {
	content, err := RenderConfig(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// O_TRUNC keeps the old mode, so tighten it explicitly
	if err := f.Chmod(0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{StarterConfig}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	return slices.Contains(ListTemplates(), name)
}
