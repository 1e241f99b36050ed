package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table names a target table and the columns written to it.
type Table struct {
	Name    string // optionally schema-qualified, e.g. "analytics.ledger_transactions"
	Columns []string
}

// Identifier returns the pgx identifier for the table name.
func (t Table) Identifier() pgx.Identifier {
	return pgx.Identifier(strings.SplitN(t.Name, ".", 2))
}

// CopyFrom bulk-inserts rows using the COPY protocol.
func CopyFrom(ctx context.Context, pool Pool, t Table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, t.Identifier(), t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", t.Name)
	}
	return n, nil
}
