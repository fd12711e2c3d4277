package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := version
		if info, ok := debug.ReadBuildInfo(); ok && v == "(devel)" && info.Main.Version != "" {
			v = info.Main.Version
		}
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "counselor %s (catalog %s)\n", v, engine.Catalog().Version())
		return nil
	},
}
