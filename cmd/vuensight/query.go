package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uhodav/vuensight"
	"github.com/uhodav/vuensight/internal/config"
	"github.com/uhodav/vuensight/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the usage index",
	Long:  "Run queries against an indexed project. <component> is a component name or a file path.",
}

func init() {
	queryCmd.AddCommand(componentsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(unusedCmd)
	queryCmd.AddCommand(reportCmd)
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List indexed components and their declared channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("components", func(qb *vuensight.QueryBuilder) error {
			comps, err := qb.Components()
			if err != nil {
				return err
			}
			out := make([]CLIComponent, 0, len(comps))
			for _, c := range comps {
				out = append(out, componentToCLI(c))
			}
			n := len(out)
			return outputResult(CLIResult{Command: "components", Results: out, TotalCount: &n})
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <component>",
	Short: "List the dependents of a component and the channels each uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("dependents", func(qb *vuensight.QueryBuilder) error {
			c, err := findComponent(qb, args[0])
			if err != nil {
				return err
			}
			deps, err := qb.Dependents(c.Path)
			if err != nil {
				return err
			}
			if deps == nil {
				deps = []vuensight.DependentUsage{}
			}
			n := len(deps)
			return outputResult(CLIResult{Command: "dependents", Results: deps, TotalCount: &n})
		})
	},
}

var unusedCmd = &cobra.Command{
	Use:   "unused <component>",
	Short: "List the declared channels of a component that no dependent uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("unused", func(qb *vuensight.QueryBuilder) error {
			c, err := findComponent(qb, args[0])
			if err != nil {
				return err
			}
			u, err := qb.UnusedChannels(c.Path)
			if err != nil {
				return err
			}
			return outputResult(CLIResult{Command: "unused", Results: u})
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Dump every component with its analyzed dependents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("report", func(qb *vuensight.QueryBuilder) error {
			r, err := qb.Report()
			if err != nil {
				return err
			}
			n := len(r)
			return outputResult(CLIResult{Command: "report", Results: r, TotalCount: &n})
		})
	},
}

// --- Helpers ---

// withQuery opens the store, runs fn and reports any error in the selected
// format.
func withQuery(command string, fn func(qb *vuensight.QueryBuilder) error) error {
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()
	if err := fn(vuensight.NewQueryBuilder(s)); err != nil {
		return outputError(command, err)
	}
	return nil
}

// openStore opens the Store from the --db flag path, the configuration, or
// the default.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	root := findRepoRoot(cwd)

	var cfg *config.Config
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(root, cfg)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'vuensight index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

func findComponent(qb *vuensight.QueryBuilder, ref string) (*vuensight.Component, error) {
	c, err := qb.Find(ref)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("component not found: %s", ref)
	}
	return c, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func componentToCLI(c *vuensight.Component) CLIComponent {
	out := CLIComponent{
		Name:   c.Name,
		Path:   c.Path,
		Props:  make([]string, 0, len(c.Props)),
		Events: make([]string, 0, len(c.Events)),
		Slots:  make([]string, 0, len(c.Slots)),
	}
	for _, p := range c.Props {
		out.Props = append(out.Props, p.Name)
	}
	for _, ev := range c.Events {
		out.Events = append(out.Events, ev.Name)
	}
	for _, s := range c.Slots {
		out.Slots = append(out.Slots, s.Name)
	}
	return out
}
