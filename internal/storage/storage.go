package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Storage is the workout history log.
type Storage struct {
	DB *sql.DB
}

// Open connects to the history database. Remote URLs (libsql://, https://,
// wss://) go through the libsql client; "file:" URLs, ":memory:" and plain
// paths are opened locally with sqlite3. The schema is created if missing.
func Open(conn string) (*Storage, error) {
	driver := DriverFor(conn)

	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("Failed to open db %s: %w", redact(conn), err)
	}

	if driver == "sqlite3" {
		// One writer at a time, and every :memory: query must see the same
		// database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Failed to connect to db %s: %w", redact(conn), err)
	}

	if err := InitializeDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("Failed to initialize database: %w", err)
	}

	return &Storage{DB: db}, nil
}

// DriverFor returns the database/sql driver name for a connection string.
func DriverFor(conn string) string {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(conn, scheme) {
			return "libsql"
		}
	}
	return "sqlite3"
}

// redact drops the query string, which carries the auth token on Turso URLs.
func redact(conn string) string {
	if i := strings.IndexByte(conn, '?'); i >= 0 && DriverFor(conn) == "libsql" {
		return conn[:i]
	}
	return conn
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func InitializeDB(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS history (
            id TEXT PRIMARY KEY,
            exercise_name TEXT NOT NULL,
            exercise_type TEXT NOT NULL,
            set_number INTEGER NOT NULL,
            reps INTEGER NOT NULL DEFAULT 0,
            weight REAL NOT NULL DEFAULT 0,
            weight_unit TEXT NOT NULL DEFAULT '',
            rounds INTEGER NOT NULL DEFAULT 0,
            work_seconds INTEGER NOT NULL DEFAULT 0,
            pause_ms INTEGER NOT NULL DEFAULT 0,
            logged_at TEXT NOT NULL
        );

        CREATE INDEX IF NOT EXISTS idx_history_logged_at ON history (logged_at);
        CREATE INDEX IF NOT EXISTS idx_history_exercise ON history (exercise_name);
    `)
	return err
}
