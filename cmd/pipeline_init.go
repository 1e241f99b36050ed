package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/config"
	"github.com/sells-group/segment-cli/internal/dataset"
	"github.com/sells-group/segment-cli/internal/ledger"
	"github.com/sells-group/segment-cli/internal/segment"
	"github.com/sells-group/segment-cli/internal/store"
)

// buildDataset validates c, generates the ledger and segments it. Every
// command starts here.
func buildDataset(c *config.Config) (*dataset.Dataset, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	lc, err := c.LedgerConfig()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	l, err := ledger.Build(lc)
	if err != nil {
		return nil, eris.Wrap(err, "build ledger")
	}

	res, err := segment.Build(l.Rows(), c.KMeansConfig())
	if err != nil {
		return nil, eris.Wrap(err, "build segments")
	}

	ds := dataset.New(l.Rows(), res)
	zap.L().Info("pipeline built",
		zap.String("run_id", ds.RunID()),
		zap.Int("ledger_rows", l.Len()),
		zap.Int("customers", len(res.Customers)),
		zap.Int("monthly_rows", len(res.Monthly)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ds, nil
}

// tablesOf collects the dataset's tables for sinks and exporters.
func tablesOf(ds *dataset.Dataset) store.Tables {
	return store.Tables{
		Ledger:    ds.Ledger(),
		Customers: ds.Customers(),
		Monthly:   ds.Monthly(),
	}
}

// initSink opens the configured sink. Callers should defer Close.
func initSink(ctx context.Context, c *config.Config) (store.Sink, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "segment.db"
		}
		return store.NewSQLite(dsn, c.RetryPolicy())
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		}, c.RetryPolicy())
	case "none", "":
		return nil, eris.New("no store configured (set store.driver or SEGMENT_STORE_DRIVER)")
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// persist migrates the sink and writes the dataset's tables under its run id.
func persist(ctx context.Context, sink store.Sink, ds *dataset.Dataset) error {
	if err := sink.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}
	if err := sink.WriteTables(ctx, ds.RunID(), tablesOf(ds)); err != nil {
		return eris.Wrap(err, "write tables")
	}
	return nil
}
