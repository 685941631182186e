package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/persistence"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertRun inserts a new bulk run into DB
func (db *DB) InsertRun(ctx context.Context, run *persistence.Run) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO bulk_runs(id, names, generate, email, status, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $6)`, run.ID, run.Names, run.Generate, utils.ToSQLStr(run.Email), run.Status, run.Created)
	if err != nil {
		return fmt.Errorf("can't insert run: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadRun loads a bulk run from DB, nil if not found
func (db *DB) LoadRun(ctx context.Context, id string) (*persistence.Run, error) {
	var res persistence.Run
	var email sql.NullString
	err := db.pool.QueryRow(ctx, `SELECT id, names, generate, email, status, processed, succeeded, failed,
	created, updated FROM bulk_runs
		WHERE id = $1`, id).Scan(&res.ID, &res.Names, &res.Generate, &email, &res.Status,
		&res.Processed, &res.Succeeded, &res.Failed, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load run: %w", err)
	}
	res.Email = utils.FromSQLStr(email)
	return &res, nil
}

// UpdateRun updates a run's status and counters
func (db *DB) UpdateRun(ctx context.Context, run *persistence.Run) error {
	rows, err := db.pool.Exec(ctx, `UPDATE bulk_runs SET
	status = $2,
	processed = $3,
	succeeded = $4,
	failed = $5,
	updated = $6
	WHERE id = $1`, run.ID, run.Status, run.Processed, run.Succeeded, run.Failed, time.Now())
	if err != nil {
		return fmt.Errorf("can't update run: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update run, no records found")
	}
	return nil
}

// AppendEntry appends one log line to a run
func (db *DB) AppendEntry(ctx context.Context, entry *persistence.RunEntry) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO bulk_run_entries(run_id, seq, level, message, created)
	VALUES($1, $2, $3, $4, $5)`, entry.RunID, entry.Seq, entry.Level, entry.Message, entry.Created)
	if err != nil {
		return fmt.Errorf("can't insert entry: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadEntries loads run log lines ordered by seq
func (db *DB) LoadEntries(ctx context.Context, runID string) ([]*persistence.RunEntry, error) {
	rows, err := db.pool.Query(ctx, `SELECT run_id, seq, level, message, created FROM bulk_run_entries
		WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("can't load entries: %w", err)
	}
	defer rows.Close()
	var res []*persistence.RunEntry
	for rows.Next() {
		var e persistence.RunEntry
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Level, &e.Message, &e.Created); err != nil {
			return nil, fmt.Errorf("can't scan entry: %w", err)
		}
		res = append(res, &e)
	}
	return res, nil
}

// ActiveRuns returns the count of runs not yet finished
func (db *DB) ActiveRuns(ctx context.Context) (int, error) {
	var res int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bulk_runs WHERE status <> 'DONE'`).Scan(&res)
	if err != nil {
		return 0, fmt.Errorf("can't count runs: %w", err)
	}
	return res, nil
}

// LockEmailTable marks an email as being sent.
// Fails if the email was already sent or is in flight
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	rows, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, msg_type, status) VALUES($1, $2, 1)
	ON CONFLICT (id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`, id, msgType)
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't lock email table, already sent")
	}
	return nil
}

// UnLockEmailTable releases the lock, value 2 marks the email as sent
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 AND msg_type = $2`,
		id, msgType, *value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
