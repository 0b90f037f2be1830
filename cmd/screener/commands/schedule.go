package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/openscreen/internal/scheduler"
	"github.com/wonny/openscreen/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Screen a drop file on a cron schedule",
	Long: `Re-reads the profile's schedule.input CSV on every cron tick, screens it
with the profile's mode and writes the labeled rows to schedule.output_dir.

SCHEDULE_CRON, SCHEDULE_INPUT and SCHEDULE_OUTPUT_DIR override the profile.

Subcommands:
  start   - run the scheduler until Ctrl+C
  run     - run the job once now, ignoring the cron spec

Example:
  go run ./cmd/screener schedule start
  go run ./cmd/screener schedule run`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the screening job once",
		RunE:  runScheduledOnce,
	}
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, job, err := initScheduler(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	next, _ := sched.NextRun(job.Name())
	PrintKeyValue(out, "Job", job.Name(), 8)
	PrintKeyValue(out, "Schedule", job.Schedule(), 8)
	PrintKeyValue(out, "Next run", next.Format("2006-01-02 15:04:05 MST"), 8)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()

	st := sched.GetJobStats()[job.Name()]
	fmt.Fprintf(out, "Runs: %d, succeeded: %d, failed: %d, skipped: %d\n",
		st.TotalRuns, st.SuccessCount, st.FailureCount, st.SkipCount)
	return nil
}

func runScheduledOnce(cmd *cobra.Command, args []string) error {
	sched, job, err := initScheduler(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	res, err := sched.RunNow(cmd.Context(), job.Name())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.Success:
		PrintSuccess(out, fmt.Sprintf("Job %s completed in %s", res.JobName, res.Duration))
	case res.Skipped:
		PrintInfo(out, fmt.Sprintf("Job %s skipped: outside the schedule window", res.JobName))
	default:
		return fmt.Errorf("job %s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error)
	}
	return nil
}

func initScheduler(logOut io.Writer) (*scheduler.Scheduler, *jobs.ScreenFileJob, error) {
	a, err := bootstrap(logOut)
	if err != nil {
		return nil, nil, err
	}

	sc := a.profile.Schedule
	if a.cfg.Schedule.Cron != "" {
		sc.Cron = a.cfg.Schedule.Cron
	}
	if a.cfg.Schedule.Input != "" {
		sc.Input = a.cfg.Schedule.Input
	}
	if a.cfg.Schedule.OutputDir != "" {
		sc.OutputDir = a.cfg.Schedule.OutputDir
	}
	if sc.Input == "" {
		return nil, nil, fmt.Errorf("schedule.input (or SCHEDULE_INPUT) is required")
	}
	if sc.OutputDir == "" {
		sc.OutputDir = "."
	}

	loc, err := a.profile.Location()
	if err != nil {
		return nil, nil, err
	}

	opts := scheduler.DefaultOptions()
	opts.Location = loc
	sched := scheduler.New(a.log, opts)

	job := jobs.NewScreenFileJob(jobs.ScreenFileConfig{
		Schedule:    sc.Cron,
		Input:       sc.Input,
		OutputDir:   sc.OutputDir,
		Request:     a.defaultRequest(),
		WindowStart: sc.Window.Start,
		WindowEnd:   sc.Window.End,
		Location:    loc,
	}, a.reader, a.engine, a.log)

	if err := sched.AddJob(job); err != nil {
		return nil, nil, err
	}
	return sched, job, nil
}
