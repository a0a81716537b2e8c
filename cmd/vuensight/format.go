package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/uhodav/vuensight"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// joinOrDash joins names with ", " or returns "-" for none.
func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// formatComponentsText formats CLIComponent results as aligned columns.
func formatComponentsText(w io.Writer, comps []CLIComponent) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROPS\tEVENTS\tSLOTS\tFILE")
	for _, c := range comps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Name, joinOrDash(c.Props), joinOrDash(c.Events), joinOrDash(c.Slots), c.Path)
	}
	tw.Flush()
}

// formatDependentsText formats dependents with the channels they use.
func formatDependentsText(w io.Writer, deps []vuensight.DependentUsage) {
	if len(deps) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no dependents"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPENDENT\tPROPS\tEVENTS\tSLOTS\tFILE")
	for _, d := range deps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.Name, joinOrDash(d.PropNames), joinOrDash(d.EventNames), joinOrDash(d.SlotNames), d.Path)
	}
	tw.Flush()
}

func formatUnusedText(w io.Writer, u *vuensight.Unused) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%s (%d dependents)", u.Component, u.Dependents)))
	fmt.Fprintln(w, dimStyle.Render(u.Path))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Unused props:  %s\n", joinOrDash(u.Props))
	fmt.Fprintf(w, "Unused events: %s\n", joinOrDash(u.Events))
	fmt.Fprintf(w, "Unused slots:  %s\n", joinOrDash(u.Slots))
}

func formatReportText(w io.Writer, report []vuensight.ComponentReport) {
	for i, r := range report {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render(r.Name)+" "+dimStyle.Render(r.FullPath))
		if len(r.Dependents) == 0 {
			fmt.Fprintln(w, dimStyle.Render("  no dependents"))
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  DEPENDENT\tPROPS\tEVENTS\tSLOTS")
		for _, d := range r.Dependents {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Name,
				joinOrDash(indexedNames(d.UsedProps, len(r.Props), func(i int) string { return r.Props[i].Name })),
				joinOrDash(indexedNames(d.UsedEvents, len(r.Events), func(i int) string { return r.Events[i].Name })),
				joinOrDash(indexedNames(d.UsedSlots, len(r.Slots), func(i int) string { return r.Slots[i].Name })))
		}
		tw.Flush()
	}
}

// indexedNames maps channel indices to names, dropping out-of-range ones.
func indexedNames(idx []int, n int, name func(int) string) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < n {
			out = append(out, name(i))
		}
	}
	return out
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(result CLIResult) error {
	w := stdout

	switch v := result.Results.(type) {
	case []CLIComponent:
		formatComponentsText(w, v)
	case []vuensight.DependentUsage:
		formatDependentsText(w, v)
	case *vuensight.Unused:
		formatUnusedText(w, v)
	case []vuensight.ComponentReport:
		formatReportText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
