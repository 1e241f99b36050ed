package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes an idempotent bulk write: rows are staged in a temp
// table and merged into the target on the conflict keys.
type Upsert struct {
	Table        Table
	ConflictKeys []string
}

// updateColumns returns every column that is not a conflict key.
func (u Upsert) updateColumns() []string {
	keys := make(map[string]bool, len(u.ConflictKeys))
	for _, k := range u.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, c := range u.Table.Columns {
		if !keys[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// mergeSQL builds the INSERT ... ON CONFLICT statement from the staging table.
func (u Upsert) mergeSQL(staging string) string {
	cols := quoteAndJoin(u.Table.Columns)

	update := u.updateColumns()
	action := "DO NOTHING"
	if len(update) > 0 {
		set := make([]string, len(update))
		for i, c := range update {
			q := pgx.Identifier{c}.Sanitize()
			set[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		u.Table.Identifier().Sanitize(), cols, cols,
		pgx.Identifier{staging}.Sanitize(), quoteAndJoin(u.ConflictKeys), action)
}

// BulkUpsert writes rows in a single transaction and returns the number of
// rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Table.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(u.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := "_stage_" + strings.ReplaceAll(u.Table.Name, ".", "_")
	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(), u.Table.Identifier().Sanitize())
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", u.Table.Name)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, u.Table.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into staging table for %s", u.Table.Name)
	}

	tag, err := tx.Exec(ctx, u.mergeSQL(staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", u.Table.Name)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
