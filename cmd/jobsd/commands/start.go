package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/cache"
	"github.com/vrooli/jobs/config"
	"github.com/vrooli/jobs/jobs"
	"github.com/vrooli/jobs/logger"
)

// purgeInterval is how often expired entries are dropped from the in-memory dedup cache
const purgeInterval = time.Hour

// StartCmd runs the daemon in the foreground
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler and the status endpoint",
	Long: `Start jobsd in the foreground.

The daemon:
- Registers the job catalog, applying [jobs.<key>] overrides
- Fires each job on its cron schedule within the max_concurrent_jobs budget
- Serves /healthz, /jobs and /metrics on server.address
- Applies scheduler.max_concurrent_jobs changes from the config file without a restart
- Stops on SIGINT or SIGTERM, waiting for running jobs to return`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	log := logger.ComponentLogger("jobsd")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	sched := c.Scheduler()
	if err := jobs.Register(sched, jobs.Definitions(c.Catalog(), cfg), log); err != nil {
		// The job stays listed as invalid; the rest of the catalog runs
		log.Warnw("Some jobs failed to register", logger.FieldError, err)
	}

	if mem, ok := c.Cache().(*cache.Memory); ok {
		go purgeLoop(ctx, mem, purgeInterval)
	}

	sched.Start(ctx)

	srv := c.Server()
	if err := srv.Start(); err != nil {
		sched.Stop()
		return err
	}

	if path := watchedPath(); path != "" {
		w, err := config.NewWatcher(path, logger.ComponentLogger("config"))
		if err != nil {
			log.Warnw("Config hot reload disabled", logger.FieldError, err)
		} else {
			w.OnReload(func(next *config.Config) error {
				sched.SetMaxConcurrent(next.Scheduler.MaxConcurrentJobs)
				return nil
			})
			w.Start()
			defer w.Stop()
		}
	}

	pterm.Success.Printfln("jobsd started")
	pterm.Printfln("  Jobs:            %d", len(sched.Jobs()))
	pterm.Printfln("  Max concurrent:  %d", sched.MaxConcurrent())
	pterm.Printfln("  Status endpoint: http://%s", srv.Addr())
	pterm.Println()
	pterm.Info.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	pterm.Info.Println("Shutting down, waiting for running jobs...")
	if err := srv.Stop(); err != nil {
		log.Warnw("Status endpoint shutdown failed", logger.FieldError, err)
	}
	sched.Stop()
	pterm.Success.Println("jobsd stopped")
	return nil
}

func purgeLoop(ctx context.Context, mem *cache.Memory, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Purge(); n > 0 {
				logger.Logger.Debugw("Purged expired cache entries", logger.FieldCount, n)
			}
		}
	}
}
