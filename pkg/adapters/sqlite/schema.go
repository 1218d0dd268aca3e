package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS "%s" (
    sid TEXT PRIMARY KEY NOT NULL,
    sess TEXT NOT NULL,
    expire INTEGER NOT NULL
)`

	createIndexSQL = `CREATE INDEX IF NOT EXISTS "%s_expire_idx" ON "%s" (expire)`
)

// queries holds the statements bound to one table name.
type queries struct {
	get     string
	set     string
	destroy string
	all     string
	length  string
	clear   string
	touch   string
	cleanup string
}

func newQueries(table string) queries {
	return queries{
		get: fmt.Sprintf(`SELECT sess FROM "%s" WHERE sid = ?`, table),
		set: fmt.Sprintf(`INSERT INTO "%s" (sid, sess, expire) VALUES (?, ?, ?) `+
			`ON CONFLICT(sid) DO UPDATE SET sess = excluded.sess, expire = excluded.expire`, table),
		destroy: fmt.Sprintf(`DELETE FROM "%s" WHERE sid = ?`, table),
		all:     fmt.Sprintf(`SELECT sess FROM "%s"`, table),
		length:  fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table),
		clear:   fmt.Sprintf(`DELETE FROM "%s"`, table),
		touch:   fmt.Sprintf(`UPDATE "%s" SET expire = ? WHERE sid = ?`, table),
		cleanup: fmt.Sprintf(`DELETE FROM "%s" WHERE expire < ?`, table),
	}
}

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// migrate creates the table and its expiry index if missing. It never drops or alters.
func migrate(ctx context.Context, db *sql.DB, table string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(createTableSQL, table)); err != nil {
		return fmt.Errorf("failed to create table %q: %w", table, err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(createIndexSQL, table, table)); err != nil {
		return fmt.Errorf("failed to create expiry index on %q: %w", table, err)
	}
	return nil
}
