package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/intake"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run a batch counseling request (JSON, - for stdin)",
	Long: `Reads a {"batch_data": [...]} request, classifies every student, generates
guides for classified students and prints the ordered results as JSON.
Results are also saved to the database under the printed batch_id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		classifyOnly, _ := cmd.Flags().GetBool("classify-only")

		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		var req intake.BatchRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decode batch request: %w", err)
		}

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

		svc, err := buildService(ctx, reg, st, !classifyOnly)
		if err != nil {
			return err
		}

		resp, err := svc.CounselBatch(ctx, &req)
		if resp == nil {
			return err
		}
		if perr := printJSON(cmd.OutOrStdout(), resp); perr != nil {
			return perr
		}
		if errors.Is(err, dispatch.ErrDispatchAborted) {
			logger.Warn("batch interrupted", zap.String("batch_id", resp.BatchID), zap.Int("not_run", resp.NotRun))
		}
		return err
	},
}

func init() {
	batchCmd.Flags().Bool("classify-only", false, "Skip guide generation")
}
