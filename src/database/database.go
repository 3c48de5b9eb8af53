package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/idxflow/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Creating database schema if absent", "databasePath", databasePath)
	} else {
		stdlog.Println("Creating database schema if absent:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS run_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		files_discovered INTEGER NOT NULL DEFAULT 0,
		files_processed INTEGER NOT NULL DEFAULT 0,
		files_succeeded INTEGER NOT NULL DEFAULT 0,
		files_skipped INTEGER NOT NULL DEFAULT 0,
		files_failed INTEGER NOT NULL DEFAULT 0,
		outputs_written INTEGER NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL DEFAULT FALSE,
		message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_run_history_kind ON run_history(kind, started_at DESC);
	`
	if _, err := db.Exec(createTableStatement); err != nil {
		stdlog.Fatalf("failed to create run_history schema: %v", err)
	}
}
