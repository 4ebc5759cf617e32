package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// StaleEntryMessage is recorded on entries abandoned mid-pipeline.
const StaleEntryMessage = "processing was interrupted before completion"

// Querier is satisfied by *sql.DB and *sql.Tx
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// FailStaleEntries marks every entry still processing that was created before
// cutoff as failed. It returns the number of entries changed.
func FailStaleEntries(db Querier, cutoff time.Time) (int64, error) {
	queryBuilder := psql.Update("mood_entries").
		Set("status", StatusFailed).
		Set("error_message", StaleEntryMessage).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"status": StatusProcessing}).
		Where(sq.Lt{"created_at": cutoff.UTC()})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for FailStaleEntries: %w", err)
	}

	res, err := db.Exec(sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows for stale entries: %w", err)
	}
	return n, nil
}

// CountEntriesByStatus returns how many entries are in the given status.
func CountEntriesByStatus(db Querier, status string) (int64, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").
		From("mood_entries").
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for CountEntriesByStatus: %w", err)
	}

	var n int64
	if err := db.QueryRow(sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s entries: %w", status, err)
	}
	return n, nil
}
