package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/segment-cli/internal/resilience"
)

// SQLiteStore implements Sink using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, retry resilience.RetryConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, retry: retry}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS segment_runs (
	run_id        TEXT PRIMARY KEY,
	ledger_rows   INTEGER NOT NULL,
	customer_rows INTEGER NOT NULL,
	monthly_rows  INTEGER NOT NULL,
	written_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ledger_transactions (
	run_id                    TEXT    NOT NULL,
	date_key                  INTEGER NOT NULL,
	date                      DATETIME NOT NULL,
	year                      INTEGER NOT NULL,
	month                     INTEGER NOT NULL,
	day                       INTEGER NOT NULL,
	customer_key              TEXT    NOT NULL,
	name                      TEXT    NOT NULL,
	store_key                 TEXT    NOT NULL,
	store_description         TEXT    NOT NULL,
	unit_cost                 REAL    NOT NULL,
	unit_price                REAL    NOT NULL,
	sales_quantity            INTEGER NOT NULL,
	income                    REAL    NOT NULL,
	expense                   REAL    NOT NULL,
	profit                    REAL    NOT NULL,
	budget_profit             REAL    NOT NULL,
	percent_compliance        REAL    NOT NULL,
	profit_accumulated        REAL    NOT NULL,
	budget_profit_accumulated REAL    NOT NULL,
	PRIMARY KEY (run_id, customer_key, date_key)
);

CREATE TABLE IF NOT EXISTS customer_segments (
	run_id             TEXT NOT NULL,
	customer_key       TEXT NOT NULL,
	name               TEXT NOT NULL,
	profit             REAL NOT NULL,
	budget_profit      REAL NOT NULL,
	income             REAL NOT NULL,
	percent_compliance REAL NOT NULL,
	segment            TEXT NOT NULL,
	PRIMARY KEY (run_id, customer_key)
);

CREATE TABLE IF NOT EXISTS monthly_segments (
	run_id             TEXT    NOT NULL,
	year               INTEGER NOT NULL,
	month              INTEGER NOT NULL,
	customer_key       TEXT    NOT NULL,
	name               TEXT    NOT NULL,
	profit             REAL    NOT NULL,
	budget_profit      REAL    NOT NULL,
	income             REAL    NOT NULL,
	percent_compliance REAL    NOT NULL,
	segment            TEXT    NOT NULL,
	PRIMARY KEY (run_id, year, month, customer_key)
);

CREATE INDEX IF NOT EXISTS idx_monthly_segments_period ON monthly_segments(run_id, year, month);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteTables replaces the rows of runID in all three tables within one
// transaction, retrying when the database is busy.
func (s *SQLiteStore) WriteTables(ctx context.Context, runID string, tables Tables) error {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("sqlite", "*")

	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return s.writeTx(ctx, runID, tables)
	})
	if err != nil {
		return err
	}

	zap.L().Info("sqlite: tables written",
		zap.String("run_id", runID),
		zap.Int("ledger_rows", len(tables.Ledger)),
		zap.Int("customer_rows", len(tables.Customers)),
		zap.Int("monthly_rows", len(tables.Monthly)),
	)
	return nil
}

func (s *SQLiteStore) writeTx(ctx context.Context, runID string, tables Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	batches := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{LedgerTable, ledgerColumns, ledgerRows(runID, tables.Ledger)},
		{CustomersTable, customerColumns, customerRows(runID, tables.Customers)},
		{MonthlyTable, monthlyColumns, monthlyRows(runID, tables.Monthly)},
	}

	for _, b := range batches {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+b.table+" WHERE run_id = ?", runID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", b.table)
		}
		if err := insertRows(ctx, tx, b.table, b.columns, b.rows); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO segment_runs (run_id, ledger_rows, customer_rows, monthly_rows) VALUES (?, ?, ?, ?)`,
		runID, len(tables.Ledger), len(tables.Customers), len(tables.Monthly)); err != nil {
		return eris.Wrap(err, "sqlite: record run")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit tx")
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}
