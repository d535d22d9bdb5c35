package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertSpec describes a bulk upsert target.
type UpsertSpec struct {
	Table   string   // target table, optionally schema-qualified
	Columns []string // columns present in every row, in row order
	Keys    []string // columns of the unique constraint rows conflict on
	Update  []string // columns overwritten on conflict; nil means every non-key column
}

func (s UpsertSpec) validate() error {
	if s.Table == "" {
		return eris.New("db: upsert: no table specified")
	}
	if len(s.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(s.Keys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (s UpsertSpec) updateColumns() []string {
	if s.Update != nil {
		return s.Update
	}
	keys := make(map[string]bool, len(s.Keys))
	for _, k := range s.Keys {
		keys[k] = true
	}
	var cols []string
	for _, c := range s.Columns {
		if !keys[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

func (s UpsertSpec) stageTable() string {
	return "_stage_" + strings.ReplaceAll(s.Table, ".", "_")
}

// BulkUpsert writes rows in one transaction: the rows are COPYed into a
// temporary stage table, duplicates on the key are collapsed to the last
// occurrence, and the stage is merged into the target with ON CONFLICT.
// It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := spec.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := spec.stageTable()
	if _, err := tx.Exec(ctx, createStageSQL(spec, stage)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create stage for %s", spec.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, spec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into stage for %s", spec.Table)
	}
	if _, err := tx.Exec(ctx, dedupSQL(spec, stage)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: dedup stage for %s", spec.Table)
	}
	tag, err := tx.Exec(ctx, mergeSQL(spec, stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", spec.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func createStageSQL(spec UpsertSpec, stage string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(), quoteTable(spec.Table))
}

// dedupSQL keeps the physically last staged row per key; COPY appends in
// input order.
func dedupSQL(spec UpsertSpec, stage string) string {
	conds := make([]string, len(spec.Keys))
	for i, k := range spec.Keys {
		q := pgx.Identifier{k}.Sanitize()
		conds[i] = fmt.Sprintf("a.%s = b.%s", q, q)
	}
	st := pgx.Identifier{stage}.Sanitize()
	return fmt.Sprintf("DELETE FROM %s a USING %s b WHERE a.ctid < b.ctid AND %s", st, st, strings.Join(conds, " AND "))
}

func mergeSQL(spec UpsertSpec, stage string) string {
	cols := quoteJoin(spec.Columns)
	action := "DO NOTHING"
	if upd := spec.updateColumns(); len(upd) > 0 {
		sets := make([]string, len(upd))
		for i, c := range upd {
			q := pgx.Identifier{c}.Sanitize()
			sets[i] = q + " = EXCLUDED." + q
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		quoteTable(spec.Table), cols, cols, pgx.Identifier{stage}.Sanitize(), quoteJoin(spec.Keys), action)
}

// quoteTable quotes an optionally schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(strings.SplitN(table, ".", 2)).Sanitize()
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
