package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is a fixed-width UTC layout; lexical order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime formats t in UTC using timeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a timestamp written by formatTime.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseTime(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// parseNullTime parses a nullable timestamp column.
func parseNullTime(value sql.NullString, fieldName string) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String, fieldName)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// execer is satisfied by both *DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// loadTempSet fills a temporary single-column table with values so that
// set-difference deletes can be expressed in SQL. The table is emptied first.
func loadTempSet(ctx context.Context, tx *sql.Tx, table string, values []string) error {
	if _, err := tx.ExecContext(ctx, "CREATE TEMP TABLE IF NOT EXISTS "+table+" (value TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO "+table+" (value) VALUES (?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, v); err != nil {
			return fmt.Errorf("fill %s: %w", table, err)
		}
	}
	return nil
}
