package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/canbcare/counselor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP counseling API",
	Long: `Run the HTTP counseling API. SIGHUP re-reads catalog_path and swaps the
active catalog without dropping requests; a catalog that fails to load is
logged and the previous one stays active.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		grace, _ := cmd.Flags().GetDuration("grace")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := buildService(ctx, reg, st, true)
		if err != nil {
			return err
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go watchCatalog(ctx, reg, cfg.CatalogPath, hup)

		return server.New(svc, logger).ListenAndServe(ctx, addr, grace)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http_addr)")
	serveCmd.Flags().Duration("grace", 2*time.Minute, "How long to wait for in-flight requests on shutdown")
}
