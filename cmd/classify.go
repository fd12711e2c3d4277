package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canbcare/counselor/internal/feature"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify one feature record (JSON, - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		rec, err := feature.DecodeRecord(data)
		if err != nil {
			return err
		}
		snap, err := rec.Snapshot()
		if err != nil {
			return err
		}

		engine, err := loadEngine()
		if err != nil {
			return err
		}
		res, err := engine.Classify(snap)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
