package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/model"
)

var generatePersist bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the ledger and segment customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ds, err := buildDataset(cfg)
		if err != nil {
			return err
		}

		sizes := make(map[model.Segment]int, model.SegmentCount)
		for _, c := range ds.Customers() {
			sizes[c.Segment]++
		}
		for s := model.Segment(1); s <= model.SegmentCount; s++ {
			zap.L().Info("segment size", zap.Stringer("segment", s), zap.Int("customers", sizes[s]))
		}

		if !generatePersist {
			return nil
		}

		sink, err := initSink(ctx, cfg)
		if err != nil {
			return err
		}
		defer sink.Close() //nolint:errcheck

		if err := persist(ctx, sink, ds); err != nil {
			return err
		}
		zap.L().Info("run persisted", zap.String("run_id", ds.RunID()), zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generatePersist, "persist", false, "write tables to the configured store")
	rootCmd.AddCommand(generateCmd)
}
