package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/corpus"
	"github.com/cognicore/arcs/pkg/arcs/stream"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot>",
	Short: "Report document count and duplicate ids of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	r, err := openLines(args[0], stream.WithKeepSpace(true))
	if err != nil {
		return err
	}
	defer r.Close()

	report, err := corpus.Verify(r)
	if err != nil {
		return fmt.Errorf("verify %s: %w", args[0], err)
	}

	fmt.Fprintf(os.Stdout, "documents: %d\nduplicate ids: %d\n", report.Total, len(report.Duplicates))
	for _, id := range report.Duplicates {
		fmt.Fprintf(os.Stdout, "  %s\n", id)
	}
	if len(report.Duplicates) > 0 {
		logger.Warn("Snapshot has duplicate document ids", zap.Int("count", len(report.Duplicates)))
	}
	return nil
}
