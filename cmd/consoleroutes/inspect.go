package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/historyserver"
	"github.com/vango-dev/consoleroutes/pkg/manifest"
	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			table, err := buildTable(cmd.Context(), cfg, views.Console())
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), historyserver.Tree(table), 0)
			return nil
		},
	}
}

func printTree(w io.Writer, nodes []*historyserver.RouteNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		line := indent + n.Path
		if n.Name != "" {
			line += "  (" + n.Name + ")"
		}
		switch {
		case n.Redirect != "":
			line += "  -> " + n.Redirect
		case n.RedirectName != "":
			line += "  -> @" + n.RedirectName
		}
		if n.Title != "" {
			line += "  " + n.Title
		}
		fmt.Fprintln(w, line)
		printTree(w, n.Children, depth+1)
	}
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve PATH",
		Short: "Resolve a path against the route table",
		Long: `Resolve a path and print the matched route, following redirects.

Examples:
  consoleroutes resolve /Index/Home
  consoleroutes resolve "/Index/Test?tab=2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			table, err := buildTable(cmd.Context(), cfg, views.Console())
			if err != nil {
				return err
			}
			loc, err := table.Match(args[0])
			if err != nil {
				return errors.New("E300").Wrap(err)
			}
			printLocation(cmd.OutOrStdout(), loc)
			return nil
		},
	}
}

func printLocation(w io.Writer, loc *router.Location) {
	fmt.Fprintf(w, "  Path:     %s\n", loc.FullPath)
	if loc.Name != "" {
		fmt.Fprintf(w, "  Name:     %s\n", loc.Name)
	}
	if loc.Title() != "" {
		fmt.Fprintf(w, "  Title:    %s\n", loc.Title())
	}
	if loc.RedirectedFrom != "" {
		fmt.Fprintf(w, "  From:     %s\n", loc.RedirectedFrom)
	}
	for k, v := range loc.Params {
		fmt.Fprintf(w, "  Param:    %s=%s\n", k, v)
	}
	chain := make([]string, 0, len(loc.Matched))
	for _, rec := range loc.Matched {
		chain = append(chain, rec.Path)
	}
	fmt.Fprintf(w, "  Matched:  %s\n", strings.Join(chain, " > "))
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a route manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []router.Option
			if cfg, err := loadConfig(flags); err == nil {
				opts = tableOptions(cfg)
			}
			routes, err := manifest.LoadFile(args[0], views.Console())
			if err != nil {
				return err
			}
			if err := manifest.Validate(routes, opts...); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s is valid", args[0])
			return nil
		},
	}
}
