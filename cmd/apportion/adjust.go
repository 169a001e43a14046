package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/apportion/pkg/allocation"
)

// newItemCommand builds a command of the form "<use> <allocation> <item>".
func newItemCommand(use, short string, aliases []string, fn func(id string, index int) (*allocation.Result, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <allocation> <item>",
		Aliases: aliases,
		Short:   short,
		GroupID: gAdjust,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveAllocation(args[0])
			if err != nil {
				return err
			}
			index, err := findItem(a, args[1])
			if err != nil {
				return err
			}

			res, err := fn(a.ID.String(), index)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}

			printResult(cmd, res)
			return nil
		},
	}
}

func NewIncrementCommand() *cobra.Command {
	return newItemCommand("inc", "Raise an item by one step", []string{"increment"}, func(id string, index int) (*allocation.Result, error) {
		return apiClient.Increment(id, index)
	})
}

func NewDecrementCommand() *cobra.Command {
	return newItemCommand("dec", "Lower an item by one step", []string{"decrement"}, func(id string, index int) (*allocation.Result, error) {
		return apiClient.Decrement(id, index)
	})
}

func NewRemoveCommand() *cobra.Command {
	return newItemCommand("remove", "Remove an item, the others absorb its share", nil, func(id string, index int) (*allocation.Result, error) {
		return apiClient.RemoveItem(id, index)
	})
}

func NewShiftCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "shift <allocation> <item> <magnitude>",
		Short:   "Move an item by an arbitrary amount",
		GroupID: gAdjust,
		Example: `  apportion shift colors red +5%
  apportion shift colors 0 -0.1`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			magnitude, err := parseMagnitude(args[2])
			if err != nil {
				return err
			}
			a, err := resolveAllocation(args[0])
			if err != nil {
				return err
			}
			index, err := findItem(a, args[1])
			if err != nil {
				return err
			}

			res, err := apiClient.Shift(a.ID.String(), index, magnitude)
			if err != nil {
				return fmt.Errorf("failed to shift: %w", err)
			}

			printResult(cmd, res)
			return nil
		},
	}
}

func NewSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <allocation> <item> <value>",
		Short:   "Set an item to a value, e.g. 30% or 0.3",
		GroupID: gAdjust,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveAllocation(args[0])
			if err != nil {
				return err
			}
			index, err := findItem(a, args[1])
			if err != nil {
				return err
			}

			res, err := apiClient.Edit(a.ID.String(), index, args[2])
			if err != nil {
				return fmt.Errorf("failed to set value: %w", err)
			}

			printResult(cmd, res)
			return nil
		},
	}
}

// newForceCommand builds a command of the form "<use> <allocation> [--force]".
func newForceCommand(use, short, long string, fn func(id string, force bool) (*allocation.Result, error)) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     use + " <allocation>",
		Short:   short,
		Long:    long,
		GroupID: gAdjust,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveAllocation(args[0])
			if err != nil {
				return err
			}

			res, err := fn(a.ID.String(), force)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}

			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "act even if the shares already add up to 100%")

	return cmd
}

func NewResetCommand() *cobra.Command {
	return newForceCommand("reset", "Give every item an equal share",
		`Give every item an equal share.

Without --force this only happens when the shares no longer add up to 100%.`,
		func(id string, force bool) (*allocation.Result, error) {
			return apiClient.Reset(id, force)
		})
}

func NewRecalibrateCommand() *cobra.Command {
	return newForceCommand("recalibrate", "Spread rounding drift evenly over all items",
		`Spread rounding drift evenly over all items, keeping their differences.

Without --force this only happens when the shares no longer add up to 100%
within the configured precision.`,
		func(id string, force bool) (*allocation.Result, error) {
			return apiClient.Recalibrate(id, force)
		})
}
