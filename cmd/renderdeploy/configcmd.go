package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"renderdeploy/internal/config"
	"renderdeploy/internal/render"
	"renderdeploy/pkg/fileutil"
	"renderdeploy/pkg/templates"

	"github.com/spf13/cobra"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or check the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter renderdeploy.yaml",
	Long: `Write a starter configuration file with owner-only permissions.

Without a path the file is written to the user config directory. A path naming an existing
directory gets a renderdeploy.yaml inside it. The API key is not
written unless --api-key is given; prefer the RENDER_API_KEY environment variable.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:           "validate [path]",
	Short:         "Check a configuration file for problems",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConfigValidate,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		paths := fileutil.DefaultConfigPaths(config.DefaultFileName)
		path = paths[len(paths)-1]
	}
	if fileutil.DirExists(path) {
		path = filepath.Join(path, config.DefaultFileName)
	}

	data := templates.ConfigData{
		APIURL:       render.DefaultBaseURL,
		Timeout:      config.DefaultTimeout,
		PollInterval: config.DefaultPollInterval,
	}
	if cmd.Flags().Changed("api-url") {
		data.APIURL = apiURL
	}
	if cmd.Flags().Changed("api-key") {
		data.APIKey = apiKey
	}
	if cmd.Flags().Changed("github-token") {
		data.GitHubToken = githubToken
	}

	if problems := config.ValidateFile(config.File{APIURL: data.APIURL, APIKey: data.APIKey, GitHubToken: data.GitHubToken}); len(problems) > 0 {
		return fmt.Errorf("refusing to write invalid configuration:\n%s", strings.Join(problems, "\n"))
	}

	if err := templates.WriteConfig(path, data, forceInit); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", abs)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if len(args) > 0 {
		path = args[0]
	}
	path = config.Locate(path)
	if path == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found in default locations:\n")
		for _, p := range fileutil.DefaultConfigPaths(config.DefaultFileName) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
		}
		return fmt.Errorf("configuration file not found")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	_, warnings, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: %s\n", w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}
