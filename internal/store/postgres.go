package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/segment-cli/internal/db"
	"github.com/sells-group/segment-cli/internal/resilience"
)

// PostgresStore implements Sink using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	retry   resilience.RetryConfig

	// parallelism bounds concurrent table writes.
	parallelism int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, retry resilience.RetryConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, retry: retry, parallelism: 3}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS segment_runs (
	run_id        TEXT PRIMARY KEY,
	ledger_rows   INTEGER NOT NULL,
	customer_rows INTEGER NOT NULL,
	monthly_rows  INTEGER NOT NULL,
	written_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_transactions (
	run_id                    TEXT    NOT NULL,
	date_key                  INTEGER NOT NULL,
	date                      DATE    NOT NULL,
	year                      INTEGER NOT NULL,
	month                     INTEGER NOT NULL,
	day                       INTEGER NOT NULL,
	customer_key              TEXT    NOT NULL,
	name                      TEXT    NOT NULL,
	store_key                 TEXT    NOT NULL,
	store_description         TEXT    NOT NULL,
	unit_cost                 DOUBLE PRECISION NOT NULL,
	unit_price                DOUBLE PRECISION NOT NULL,
	sales_quantity            INTEGER NOT NULL,
	income                    DOUBLE PRECISION NOT NULL,
	expense                   DOUBLE PRECISION NOT NULL,
	profit                    DOUBLE PRECISION NOT NULL,
	budget_profit             DOUBLE PRECISION NOT NULL,
	percent_compliance        DOUBLE PRECISION NOT NULL,
	profit_accumulated        DOUBLE PRECISION NOT NULL,
	budget_profit_accumulated DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, customer_key, date_key)
);

CREATE TABLE IF NOT EXISTS customer_segments (
	run_id             TEXT NOT NULL,
	customer_key       TEXT NOT NULL,
	name               TEXT NOT NULL,
	profit             DOUBLE PRECISION NOT NULL,
	budget_profit      DOUBLE PRECISION NOT NULL,
	income             DOUBLE PRECISION NOT NULL,
	percent_compliance DOUBLE PRECISION NOT NULL,
	segment            TEXT NOT NULL,
	PRIMARY KEY (run_id, customer_key)
);

CREATE TABLE IF NOT EXISTS monthly_segments (
	run_id             TEXT    NOT NULL,
	year               INTEGER NOT NULL,
	month              INTEGER NOT NULL,
	customer_key       TEXT    NOT NULL,
	name               TEXT    NOT NULL,
	profit             DOUBLE PRECISION NOT NULL,
	budget_profit      DOUBLE PRECISION NOT NULL,
	income             DOUBLE PRECISION NOT NULL,
	percent_compliance DOUBLE PRECISION NOT NULL,
	segment            TEXT    NOT NULL,
	PRIMARY KEY (run_id, year, month, customer_key)
);

CREATE INDEX IF NOT EXISTS idx_monthly_segments_period ON monthly_segments(run_id, year, month);
CREATE INDEX IF NOT EXISTS idx_customer_segments_segment ON customer_segments(run_id, segment);
`

const insertRunSQL = `INSERT INTO segment_runs (run_id, ledger_rows, customer_rows, monthly_rows)
VALUES ($1, $2, $3, $4)
ON CONFLICT (run_id) DO UPDATE SET ledger_rows = EXCLUDED.ledger_rows,
	customer_rows = EXCLUDED.customer_rows, monthly_rows = EXCLUDED.monthly_rows, written_at = now()`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// WriteTables copies the ledger and upserts both segment tables, then
// records the run. Each table write is retried on transient errors.
func (s *PostgresStore) WriteTables(ctx context.Context, runID string, tables Tables) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}

	g.Go(func() error {
		return s.withRetry(gctx, LedgerTable, func(ctx context.Context) error {
			_, err := db.CopyFrom(ctx, s.pool, db.Table{Name: LedgerTable, Columns: ledgerColumns}, ledgerRows(runID, tables.Ledger))
			return err
		})
	})
	g.Go(func() error {
		return s.withRetry(gctx, CustomersTable, func(ctx context.Context) error {
			_, err := db.BulkUpsert(ctx, s.pool, customerUpsert, customerRows(runID, tables.Customers))
			return err
		})
	})
	g.Go(func() error {
		return s.withRetry(gctx, MonthlyTable, func(ctx context.Context) error {
			_, err := db.BulkUpsert(ctx, s.pool, monthlyUpsert, monthlyRows(runID, tables.Monthly))
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return eris.Wrapf(err, "postgres: write run %s", runID)
	}

	if _, err := s.pool.Exec(ctx, insertRunSQL, runID, len(tables.Ledger), len(tables.Customers), len(tables.Monthly)); err != nil {
		return eris.Wrap(err, "postgres: record run")
	}

	zap.L().Info("postgres: tables written",
		zap.String("run_id", runID),
		zap.Int("ledger_rows", len(tables.Ledger)),
		zap.Int("customer_rows", len(tables.Customers)),
		zap.Int("monthly_rows", len(tables.Monthly)),
	)
	return nil
}

func (s *PostgresStore) withRetry(ctx context.Context, table string, fn func(ctx context.Context) error) error {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("postgres", table)
	return resilience.Do(ctx, cfg, fn)
}
