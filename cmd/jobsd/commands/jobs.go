package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/jobs"
	"github.com/vrooli/jobs/pulse/schedule"
)

// JobsCmd lists the job catalog with effective schedules
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List catalog jobs and their schedules",
	RunE:  runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	c, err := NewContainer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	sched := c.Scheduler()
	entries := c.Catalog()
	// Registration errors surface in the table
	_ = jobs.Register(sched, jobs.Definitions(entries, cfg), nil)

	last, err := schedule.NewExecutionStore(c.DB()).LastExecutions(cmd.Context())
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Key", "Job", "Schedule", "Next", "Last run"}}
	registered := make(map[string]schedule.JobInfo)
	for _, info := range sched.Jobs() {
		registered[info.Description] = info
	}
	for _, e := range entries {
		info, ok := registered[e.Description]
		row := []string{e.Key, e.Description, e.Schedule, "disabled", "-"}
		if ok {
			row[2] = info.Schedule
			row[3] = formatNext(info)
		}
		if exec, found := last[e.Description]; found {
			row[4] = formatLast(exec)
		}
		data = append(data, row)
	}

	pterm.Printfln("Max concurrent jobs: %d", sched.MaxConcurrent())
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func formatNext(info schedule.JobInfo) string {
	if !info.Valid {
		return pterm.Red("invalid: " + info.Error)
	}
	return info.Next.Format(time.RFC3339)
}

func formatLast(exec *schedule.Execution) string {
	s := exec.StartedAt.UTC().Format(time.RFC3339) + " " + exec.Status
	if exec.Status == schedule.ExecutionStatusFailed {
		return pterm.Red(s)
	}
	return s
}
