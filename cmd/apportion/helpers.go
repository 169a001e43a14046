package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/percent"
	"github.com/charlie0129/apportion/pkg/version"
)

// shareDecimals is how many fraction digits shares are printed with.
const shareDecimals = 2

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

// resolveAllocation finds an allocation by id or, failing that, by name.
func resolveAllocation(ref string) (*allocation.Allocation, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return apiClient.GetAllocation(ref)
	}

	all, err := apiClient.ListAllocations()
	if err != nil {
		return nil, err
	}
	return findAllocation(all, ref)
}

func findAllocation(all []*allocation.Allocation, name string) (*allocation.Allocation, error) {
	var found *allocation.Allocation
	for _, a := range all {
		if a.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("more than one allocation is named %q, use its id instead", name)
		}
		found = a
	}
	if found == nil {
		return nil, fmt.Errorf("no allocation named %q", name)
	}
	return found, nil
}

// findItem resolves an item by zero-based index or by label.
func findItem(a *allocation.Allocation, ref string) (int, error) {
	if i, err := strconv.Atoi(ref); err == nil {
		if i < 0 || i >= len(a.Items) {
			return 0, fmt.Errorf("item %d out of range, %q has %d items", i, a.Name, len(a.Items))
		}
		return i, nil
	}
	for i, it := range a.Items {
		if it.Label == ref {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q has no item labelled %q", a.Name, ref)
}

// parseMagnitude reads a signed step such as "+5%", "-0.05" or "10%".
func parseMagnitude(text string) (float64, error) {
	t := strings.TrimSpace(text)
	sign := 1.0
	switch {
	case strings.HasPrefix(t, "-"):
		sign = -1
		t = t[1:]
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	}

	v, err := percent.Parse(t)
	if err != nil {
		return 0, fmt.Errorf("invalid magnitude %q: %w", text, err)
	}
	return sign * v, nil
}

// parsePercents parses each argument with percent.Parse.
func parsePercents(args []string) ([]float64, error) {
	ret := make([]float64, len(args))
	for i, a := range args {
		v, err := percent.Parse(a)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

func printAllocation(cmd *cobra.Command, a *allocation.Allocation) {
	cmd.Printf("%s %s\n", bold("%s", a.Name), color.HiBlackString("(%s)", a.ID))

	width := 0
	for _, it := range a.Items {
		width = max(width, len(it.Label))
	}
	for i, it := range a.Items {
		cmd.Printf("  %2d  %-*s  %s\n", i, width, it.Label, bold("%s", percent.Format(it.Share, shareDecimals)))
	}
}

func printResult(cmd *cobra.Command, res *allocation.Result) {
	printAllocation(cmd, res.Allocation)
	if !res.Adjusted {
		cmd.Println(color.YellowString("  (nothing to adjust)"))
	}
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}
