package main

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/percent"
	"github.com/charlie0129/apportion/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewCreateCommand() *cobra.Command {
	var percents []string

	cmd := &cobra.Command{
		Use:     "create <name> [label...]",
		Short:   "Create an allocation",
		GroupID: gBasic,
		Long: `Create an allocation.

Without --percents every item starts with an equal share. Percents that do not
add up to 100% are replaced by equal shares. Items without a label are named
"Item 1", "Item 2" and so on.`,
		Example: `  apportion create colors red green blue
  apportion create budget rent food fun --percents 50%,30%,20%
  apportion create split --percents 0.6,0.4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parsePercents(percents)
			if err != nil {
				return err
			}

			res, err := apiClient.CreateAllocation(args[0], args[1:], values)
			if err != nil {
				return fmt.Errorf("failed to create allocation: %w", err)
			}

			if len(values) != 0 && res.Adjusted {
				logrus.Warn("percents did not add up to 100%, every item got an equal share instead")
			}
			printAllocation(cmd, res.Allocation)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&percents, "percents", "p", nil, "initial share of every item, e.g. 50%,30%,20%")

	return cmd
}

func NewListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List allocations",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := apiClient.ListAllocations()
			if err != nil {
				return fmt.Errorf("failed to list allocations: %w", err)
			}

			if asJSON {
				return printJSON(cmd, all)
			}

			if len(all) == 0 {
				cmd.Println("No allocations yet. Create one with 'apportion create'.")
				return nil
			}
			for i, a := range all {
				if i > 0 {
					cmd.Println()
				}
				printAllocation(cmd, a)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	return cmd
}

type statusJSON struct {
	Version       string                   `json:"version"`
	Configuration *config.RawFileConfig    `json:"configuration"`
	Allocations   []*allocation.Allocation `json:"allocations"`
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status [allocation]",
		Short:   "Show daemon status, or the shares of one allocation",
		GroupID: gBasic,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a, err := resolveAllocation(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, a)
				}
				printAllocation(cmd, a)
				return nil
			}

			daemonVersion, err := apiClient.GetVersion()
			if err != nil {
				return err
			}
			conf, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}
			all, err := apiClient.ListAllocations()
			if err != nil {
				return fmt.Errorf("failed to list allocations: %w", err)
			}

			if asJSON {
				return printJSON(cmd, statusJSON{
					Version:       daemonVersion,
					Configuration: conf,
					Allocations:   all,
				})
			}

			c := config.NewFileFromConfig(conf, "")

			cmd.Println(bold("Daemon:"))
			cmd.Printf("  Version: %s\n", bold("%s", daemonVersion))
			cmd.Printf("  Allocations: %s\n", bold("%d", len(all)))
			cmd.Println()

			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Precision: %s\n", bold("%d decimal places", c.Precision()))
			cmd.Printf("  Step: %s\n", bold("%s", percent.Format(c.Magnitude(), 4)))
			if s := c.RecalibrateSchedule(); s != "" {
				cmd.Printf("  Recalibration schedule: %s\n", bold("%s", s))
			} else {
				cmd.Printf("  Recalibration schedule: %s\n", bool2Text(false))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(c.AllowNonRootAccess()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	return cmd
}

func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <allocation>",
		Aliases: []string{"rm"},
		Short:   "Delete an allocation",
		GroupID: gBasic,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := resolveAllocation(args[0])
			if err != nil {
				return err
			}

			if err := apiClient.DeleteAllocation(a.ID.String()); err != nil {
				return err
			}

			logrus.Infof("deleted allocation %q", a.Name)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
