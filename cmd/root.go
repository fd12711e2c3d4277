package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canbcare/counselor/internal/config"
	"github.com/canbcare/counselor/internal/logging"
	"github.com/canbcare/counselor/internal/store"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "counselor",
	Short: "Counseling case classification and guide generation",
	Long: `counselor classifies students into counseling cases from their exam and
study-routine features, then drafts a five-section counseling guide for each
classified student with an LLM.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if p, _ := cmd.Flags().GetString("db"); p != "" {
			c.DBPath = p
		}
		level := c.LogLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}

		l, err := logging.New(level, c.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, logger = c, l.With(zap.String("environment", c.Environment))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides COUNSELOR_CONFIG)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides COUNSELOR_DB env var)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the configured database, creating its directory. The
// default location is resolved here so commands that never touch the
// database leave the filesystem alone.
func openStore() (*store.Store, error) {
	path, err := store.ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
