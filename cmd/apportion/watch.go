package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/apportion/pkg/events"
	"github.com/charlie0129/apportion/pkg/percent"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Print changes to any allocation as they happen",
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return apiClient.Watch(ctx, func(ev events.Event) error {
				return printEvent(cmd, ev)
			})
		},
	}
}

func printEvent(cmd *cobra.Command, ev events.Event) error {
	switch ev.Name {
	case events.SeriesChanged:
		e, err := events.DecodeAs[events.SeriesChangedEvent](ev)
		if err != nil {
			return err
		}
		cmd.Printf("%s %s %s", eventTime(e.Ts), bold("%s", e.Name), color.CyanString("%s", e.Op))
		if e.Index != nil {
			cmd.Printf(" #%d", *e.Index)
		}
		cmd.Print(":")
		for _, s := range e.Shares {
			cmd.Printf(" %s", percent.Format(s, shareDecimals))
		}
		cmd.Println()
	case events.SeriesDeleted:
		e, err := events.DecodeAs[events.SeriesDeletedEvent](ev)
		if err != nil {
			return err
		}
		cmd.Printf("%s %s %s\n", eventTime(e.Ts), e.ID, color.RedString("deleted"))
	default:
		cmd.Printf("%s\n", ev.Name)
	}
	return nil
}

func eventTime(ts int64) string {
	return color.HiBlackString("%s", time.Unix(ts, 0).Format(time.TimeOnly))
}
