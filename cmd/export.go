package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/export"
)

var exportFormats []string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run tables to the configured bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(exportFormats) > 0 {
			cfg.Export.Formats = exportFormats
		}

		ds, err := buildDataset(cfg)
		if err != nil {
			return err
		}

		exp, err := export.Open(ctx, cfg.Export.BucketURL, cfg.Export.Prefix, cfg.Export.Formats, cfg.RetryPolicy())
		if err != nil {
			return err
		}
		defer exp.Close() //nolint:errcheck

		m, err := exp.Export(ctx, ds.RunID(), tablesOf(ds))
		if err != nil {
			return err
		}

		for name, f := range m.Files {
			zap.L().Info("exported",
				zap.String("file", name),
				zap.String("key", f.Key),
				zap.Int64("rows", f.RowCount),
				zap.Int64("bytes", f.ByteSize),
			)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ds.RunID())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportFormats, "format", nil, "output formats: parquet, xlsx (default from config)")
	rootCmd.AddCommand(exportCmd)
}
