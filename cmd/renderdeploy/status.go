package main

import (
	"renderdeploy/internal/deployment"
	"renderdeploy/internal/report"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show the latest deploy of a service",
	Long: `Look up a service by name and print its most recent deploy.

Nothing is triggered. Useful to check on a deploy that an earlier --wait gave up on.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup(cmd, args[0], "")
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), cfg)
	defer cancel()

	runner := &deployment.Runner{
		Client:   client,
		Reporter: report.New(cmd.OutOrStdout()),
		Logger:   logger,
	}
	_, _, err = runner.Status(ctx, cfg.ServiceName)
	return err
}
