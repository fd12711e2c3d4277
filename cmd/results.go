package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canbcare/counselor/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results [batch_id]",
	Short: "Show stored results for a batch or a student",
	Long: `With a batch ID, lists every stored outcome of that batch in input order.
With --member and --exam, shows the most recent outcome for that student.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showPayload, _ := cmd.Flags().GetBool("payload")
		member, _ := cmd.Flags().GetString("member")
		exam, _ := cmd.Flags().GetString("exam")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		repo := st.ResultRepo()
		ctx := context.Background()

		var records []store.CounselRecord
		switch {
		case len(args) == 1:
			records, err = repo.ResultsByBatch(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query results: %w", err)
			}
		case member != "" && exam != "":
			rec, err := repo.LatestForMember(ctx, member, exam)
			if err != nil {
				return fmt.Errorf("query latest result: %w", err)
			}
			if rec != nil {
				records = append(records, *rec)
			}
		default:
			return errors.New("give a batch ID, or both --member and --exam")
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}

		fmt.Fprintf(out, "%-4s  %-12s  %-14s  %-8s  %-20s  %-6s  %-7s  %s\n",
			"#", "Member", "Exam", "Status", "Case", "Tier", "Ms", "Error")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, r := range records {
			fmt.Fprintf(out, "%-4d  %-12s  %-14s  %-8s  %-20s  %-6s  %-7d  %s\n",
				r.ItemIndex, truncate(r.MemberCode, 12), truncate(r.ExamTestCode, 14),
				r.Status, r.CaseCode, r.ConfidenceTier, r.DurationMs, truncate(r.ErrorMessage, 40))
		}
		if len(args) == 0 {
			fmt.Fprintf(out, "\nbatch %s at %s\n", records[0].BatchID, records[0].CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}

		if showPayload {
			for _, r := range records {
				if r.Payload == "" {
					continue
				}
				fmt.Fprintf(out, "\n[%d] %s\n%s\n", r.ItemIndex, r.MemberCode, r.Payload)
			}
		}
		return nil
	},
}

func init() {
	resultsCmd.Flags().Bool("payload", false, "Print the stored result JSON")
	resultsCmd.Flags().String("member", "", "Member code (with --exam)")
	resultsCmd.Flags().String("exam", "", "Exam test code (with --member)")
}
