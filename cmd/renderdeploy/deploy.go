package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"renderdeploy/internal/commitref"
	"renderdeploy/internal/config"
	"renderdeploy/internal/deployment"
	"renderdeploy/internal/poller"
	"renderdeploy/internal/render"
	"renderdeploy/internal/report"
	"renderdeploy/internal/security"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	logFile     string
	apiKey      string
	apiURL      string
	githubToken string
	verbose     bool

	wait         bool
	clearCache   bool
	timeoutSecs  int
	pollInterval int
)

// secrets known to this run, redacted from error output
var secrets []string

var deployCmd = &cobra.Command{
	Use:   "deploy <name> [commit]",
	Short: "Trigger a deploy (same as running renderdeploy <name>)",
	Long: `Trigger a deploy of the named service.

This is what the root command does. It exists for services whose names collide with a
subcommand, for example "renderdeploy deploy status".`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDeploy,
}

func init() {
	registerDeployFlags(deployCmd)
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", getEnvOrDefault(config.EnvConfigFile, ""), "Path to renderdeploy.yaml configuration file")
	flags.StringVarP(&apiKey, "api-key", "k", "", "Render API key (default from "+config.EnvAPIKey+")")
	flags.StringVar(&apiURL, "api-url", "", "Render API base URL (default "+render.DefaultBaseURL+")")
	flags.StringVar(&githubToken, "github-token", "", "GitHub token used to resolve commits (default from "+config.EnvGitHubToken+")")
	flags.StringVar(&logFile, "log-file", getEnvOrDefault("RENDERDEPLOY_LOG_FILE", ""), "Also write JSON logs to this file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func registerDeployFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVarP(&wait, "wait", "w", false, "Wait for the deploy to finish")
	flags.IntVarP(&timeoutSecs, "timeout", "t", config.DefaultTimeout, "Seconds to wait before giving up (env "+config.EnvTimeout+")")
	flags.IntVar(&pollInterval, "poll-interval", config.DefaultPollInterval, "Seconds between status checks")
	flags.BoolVar(&clearCache, "clear-cache", false, "Build without the build cache")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	name := args[0]
	commit := ""
	if len(args) > 1 {
		commit = args[1]
	}

	cfg, logger, cleanup, err := setup(cmd, name, commit)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	rep := report.New(cmd.OutOrStdout())
	runner := &deployment.Runner{
		Client: client,
		Commits: commitref.NewResolver(
			commitref.WithGitHubToken(cfg.GitHubToken),
			commitref.WithLogger(logger),
		),
		Poller: poller.New(client,
			poller.WithInterval(cfg.PollInterval),
			poller.WithTimeout(cfg.Timeout),
			poller.WithObserver(rep.Status),
		),
		Reporter: rep,
		Logger:   logger,
	}

	_, err = runner.Run(cmd.Context(), cfg)
	return err
}

// setup builds the configuration and logger shared by every command that
// talks to the API.
func setup(cmd *cobra.Command, name, commit string) (config.Config, *slog.Logger, func(), error) {
	cfg, warnings, err := buildConfig(cmd, name, commit)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	secrets = cfg.Secrets()

	logger, cleanup, err := setupLogging(cmd.ErrOrStderr(), logFile, cfg.Verbose, secrets)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("Insecure config file", "warning", w)
	}
	logger.Debug("Configuration loaded",
		"api_url", cfg.APIURL,
		"api_key", security.Mask(cfg.APIKey),
		"timeout", cfg.Timeout,
		"poll_interval", cfg.PollInterval,
		"github_lookup", cfg.GitHubToken != "",
	)

	return cfg, logger, cleanup, nil
}

func buildConfig(cmd *cobra.Command, name, commit string) (config.Config, []string, error) {
	var file *config.File
	var warnings []string

	if path := config.Locate(configFile); path != "" {
		f, w, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, nil, err
		}
		file, warnings = f, w
	}

	flags := config.Flags{
		Wait:       wait,
		ClearCache: clearCache,
		Verbose:    verbose,
	}
	changed := cmd.Flags().Changed
	if changed("api-key") {
		flags.APIKey = &apiKey
	}
	if changed("api-url") {
		flags.APIURL = &apiURL
	}
	if changed("github-token") {
		flags.GitHubToken = &githubToken
	}
	if changed("timeout") {
		flags.Timeout = &timeoutSecs
	}
	if changed("poll-interval") {
		flags.PollInterval = &pollInterval
	}

	cfg, err := config.Build(name, commit, flags, file)
	return cfg, warnings, err
}

func newClient(cfg config.Config, logger *slog.Logger) (*render.Client, error) {
	return render.NewClient(cfg.APIKey,
		render.WithBaseURL(cfg.APIURL),
		render.WithLogger(logger),
		render.WithUserAgent("renderdeploy/"+version),
	)
}

// withTimeout bounds a read-only command so it cannot hang forever. A zero
// timeout only limits waiting for a deploy, so it falls back to the default.
func withTimeout(ctx context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultTimeout) * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
