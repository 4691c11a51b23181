package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/jobs"
	"github.com/vrooli/jobs/pulse/schedule"
)

// RunCmd triggers one catalog job once and waits for it
var RunCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a single job now",
	Long: `Run one catalog job immediately, through the same guards as a scheduled tick.

The job is named by its config key or its description.

Examples:
  jobsd run moderate_reports
  jobsd run "Schedule reminders"`,
	Args: cobra.ExactArgs(1),
	RunE: runJob,
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	c, err := NewContainer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	entry, ok := jobs.Find(c.Catalog(), args[0])
	if !ok {
		return errors.WithHint(
			errors.NewNotFoundError("no job named %q", args[0]),
			"run 'jobsd jobs' to list the catalog",
		)
	}

	// The catalog schedule is used so a bad override cannot block a manual run
	sched := c.Scheduler()
	if err := sched.Register(schedule.Definition{
		Description: entry.Description,
		Schedule:    entry.Schedule,
		Job:         entry.Job,
	}); err != nil {
		return err
	}
	defer sched.Stop()

	outcome := sched.Trigger(entry.Description)
	switch outcome {
	case schedule.OutcomeCompleted:
		pterm.Success.Printfln("%s: %s", entry.Description, outcome)
		return nil
	case schedule.OutcomeFailed:
		return errors.Newf("%s failed, see the log for details", entry.Description)
	default:
		pterm.Warning.Printfln("%s: %s", entry.Description, outcome)
		return nil
	}
}
