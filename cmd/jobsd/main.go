package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/cmd/jobsd/commands"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jobsd",
	Short: "jobsd - scheduled background jobs",
	Long: `jobsd runs the platform's recurring background jobs.

Each job fires on a cron schedule. A job never overlaps itself, and the number
of jobs running at once is bounded by scheduler.max_concurrent_jobs; ticks over
either limit are skipped.

Available commands:
  start  - Run the scheduler and status endpoint in the foreground
  run    - Run one job now
  jobs   - List the job catalog
  config - Inspect configuration
  db     - Manage the database

Examples:
  jobsd start -v                 # Start with info logging
  jobsd run moderate_reports     # Resolve decided reports once
  jobsd config show              # Print the effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		return commands.Setup(verbosity)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().StringVarP(&commands.ConfigPath, "config", "c", "", "Config file (default: merged system, user and project files)")
	rootCmd.PersistentFlags().BoolVar(&commands.JSONLogs, "json-logs", false, "Emit JSON log lines")

	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
