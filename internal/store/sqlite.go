package store

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite DB with a single writer connection.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
