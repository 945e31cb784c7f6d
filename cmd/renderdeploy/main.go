package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "renderdeploy <name> [commit]",
	Short: "Trigger and monitor Render deploys",
	Long: `Renderdeploy triggers a deploy of a Render service by name and can wait for it to finish.

Without a commit the head of the service's branch is deployed. A commit can be a full SHA,
a short SHA, a branch or a tag. With a GitHub token it is resolved through the GitHub API.
Otherwise a short SHA is looked up in the current checkout when one of its remotes is the
service's repo, and anything else is sent to Render as given.`,
	Example: `  renderdeploy api
  renderdeploy api v1.4.2 --wait
  renderdeploy api 3f78685 -w -t 900 --clear-cache`,
	Args:          cobra.RangeArgs(1, 2),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDeploy,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", redactError(err))
		return 1
	}
	return 0
}

func init() {
	// Set custom usage template to encourage 'help' subcommand pattern
	rootCmd.SetUsageTemplate(usageTemplate)

	registerGlobalFlags(rootCmd)
	registerDeployFlags(rootCmd)

	// Register subcommands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
