package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the case catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases in tie-break order",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		c := engine.Catalog()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Catalog %s (%d cases)\n\n", c.Version(), c.Len())
		fmt.Fprintf(out, "%-5s  %-22s  %-16s  %-5s  %-5s  %s\n",
			"Order", "Code", "Category", "Core", "Supp", "Name")
		fmt.Fprintln(out, strings.Repeat("─", 90))
		for _, d := range c.Definitions() {
			fmt.Fprintf(out, "%-5d  %-22s  %-16s  %-5d  %-5d  %s\n",
				d.Order, d.Code, d.Category, len(d.Core), len(d.Supporting), d.Name)
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <case_code>",
	Short: "Show one case with its predicates and guideline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		code := strings.ToUpper(strings.TrimSpace(args[0]))
		d := engine.Catalog().Lookup(code)
		if d == nil {
			return fmt.Errorf("case %q not in catalog %s", code, engine.Catalog().Version())
		}
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s  %s\n", d.Code, d.Name)
		fmt.Fprintf(out, "Category: %s  Order: %d\n", d.Category, d.Order)
		fmt.Fprintf(out, "Summary:  %s\n\n", d.Summary)
		fmt.Fprintln(out, "Core (all must hold):")
		for _, p := range d.Core {
			fmt.Fprintf(out, "  %s\n", p)
		}
		if len(d.Supporting) > 0 {
			fmt.Fprintln(out, "Supporting:")
			for _, p := range d.Supporting {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		if g := strings.TrimSpace(d.Guideline); g != "" {
			fmt.Fprintf(out, "\nGuideline:\n%s\n", g)
		}
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the active catalog as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		return engine.Catalog().Encode(cmd.OutOrStdout())
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogExportCmd)
}
