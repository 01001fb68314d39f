package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/askdesk/backend/internal/evaluation"
)

var evalDataset string

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the golden-question evaluation dataset through the pipeline",
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalDataset, "dataset", "", "path to a JSON dataset (defaults to the built-in one)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if _, err := a.indexer.Rebuild(ctx); err != nil {
		return err
	}

	dataset := evaluation.DefaultDataset()
	if evalDataset != "" {
		dataset, err = evaluation.LoadDataset(evalDataset)
		if err != nil {
			return err
		}
	}

	evaluator := evaluation.NewEvaluator(a.engine, a.db)
	report, err := evaluator.Run(ctx, dataset)
	if err != nil {
		return err
	}

	cmd.Print(evaluation.FormatReport(report))
	return nil
}
