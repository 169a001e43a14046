package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlie0129/apportion/pkg/types"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sched"},
		Short:   "Manage periodic drift recalibration",
		Long: `Manage periodic drift recalibration.

On every run the daemon recalibrates all allocations whose shares no longer
add up to 100% within the configured precision.

The schedule command can be used in multiple ways:
  apportion schedule 'minute hour day month weekday' Set schedule with cron expression
  apportion schedule disable                         Disable the schedule
  apportion schedule skip                            Skip next run
  apportion schedule show                            Show current schedule`,
		Example: `  apportion schedule '0 3 * * *' (At 03:00 every day)
  apportion schedule '@hourly'   (At the start of every hour)
  apportion schedule '@every 30m'`,
		GroupID: gAdvanced,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no arguments, show the current schedule
			if len(args) == 0 {
				return runScheduleShow(cmd)
			}
			// Otherwise, treat as a cron expression to set
			return runScheduleSet(cmd, args[0])
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disable",
			Short: "Disable periodic recalibration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := apiClient.SetSchedule(""); err != nil {
					return err
				}
				cmd.Println("Recalibration schedule disabled.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "skip",
			Short: "Skip the next scheduled recalibration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := apiClient.SkipSchedule()
				if err != nil {
					return err
				}
				cmd.Println("Next scheduled run skipped.")
				printSchedule(cmd, st)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the current recalibration schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runScheduleShow(cmd)
			},
		},
	)

	return cmd
}

func runScheduleSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty, use 'apportion schedule disable' instead")
	}
	st, err := apiClient.SetSchedule(cronExpr)
	if err != nil {
		return err
	}
	cmd.Println("Recalibration scheduled.")
	printSchedule(cmd, st)
	return nil
}

func runScheduleShow(cmd *cobra.Command) error {
	st, err := apiClient.GetSchedule()
	if err != nil {
		return err
	}
	printSchedule(cmd, st)
	return nil
}

func printSchedule(cmd *cobra.Command, st *types.ScheduleStatus) {
	if st.Expr == "" {
		cmd.Println("Recalibration schedule is not set.")
		return
	}
	cmd.Printf("  Schedule: %s\n", bold("%s", st.Expr))
	cmd.Printf("  Next run: %s\n", bold("%s", st.NextRun.Local().Format(time.DateTime)))
}
