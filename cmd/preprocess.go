package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dataset-cli/internal/preprocess"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Apply null handling, scaling and encoding to a saved dataset",
	Long:  "Reads a CSV, JSON or XLSX dataset, applies the handle_nulls, normalization and encoding rules from --spec in that order, and writes the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("preprocess"); err != nil {
			return err
		}

		in, _ := cmd.Flags().GetString("in")
		specPath, _ := cmd.Flags().GetString("spec")
		formatFlag, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		ds, err := readDataset(in)
		if err != nil {
			return err
		}
		spec, err := loadPreprocessSpec(specPath)
		if err != nil {
			return err
		}
		format, err := outputFormat(formatFlag, out)
		if err != nil {
			return err
		}

		result := preprocess.Apply(ds, spec)
		zap.L().Info("preprocess: applied",
			zap.String("in", in),
			zap.Int("rows_in", ds.Len()),
			zap.Int("rows_out", result.Len()),
			zap.Int("columns_out", len(result.Columns)),
		)

		return writeDataset(cmd.OutOrStdout(), out, format, result)
	},
}

func init() {
	preprocessCmd.Flags().String("in", "", "input dataset (.csv, .json or .xlsx)")
	preprocessCmd.Flags().String("spec", "", "YAML or JSON preprocessing rules")
	preprocessCmd.Flags().String("format", "", "output format: csv, json, xml, xlsx (default from --out, else csv)")
	preprocessCmd.Flags().String("out", "", "output file (default stdout)")
	_ = preprocessCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(preprocessCmd)
}
