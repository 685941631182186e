package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner drops all records of one bulk run
type Cleaner struct {
	pool *pgxpool.Pool
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	res := &Cleaner{pool: pool}
	return res, nil
}

// Clean deletes run rows by ID
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	for _, t := range []struct{ table, column string }{
		{table: "bulk_run_entries", column: "run_id"},
		{table: "email_lock", column: "id"},
		{table: "bulk_runs", column: "id"},
	} {
		cmd, err := db.pool.Exec(ctx, `DELETE FROM `+t.table+` WHERE `+t.column+` = $1`, id)
		if err != nil {
			return fmt.Errorf("can't delete %s(%s): %w", id, t.table, err)
		}
		goapp.Log.Info().Str("ID", id).Str("table", t.table).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	}
	return nil
}
