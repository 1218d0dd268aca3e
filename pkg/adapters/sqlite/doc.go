/*
Package sqlite implements ports.SessionStore on an embedded SQLite table.

It uses modernc.org/sqlite, a CGO-free driver, so the store builds anywhere Go does.

	store, err := sqlite.New(ctx, sqlite.Config{Path: "sessions.db"})
	if err != nil {
		log.Fatal(err) // domain.ErrInitialization
	}
	defer store.Close()

The table has three columns: sid (primary key), sess (JSON payload) and expire (epoch
milliseconds). Reads do not filter expired rows; call Cleanup periodically.
*/
package sqlite
