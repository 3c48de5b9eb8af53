package database

import (
	"database/sql"
	"fmt"

	"github.com/username/idxflow/backend/src/models"
)

// SQLRunStore persists run reports to the run_history table. It implements
// services.RunStore.
type SQLRunStore struct {
	db *sql.DB
}

func NewRunStore() *SQLRunStore {
	return &SQLRunStore{db: DB}
}

func (s *SQLRunStore) SaveRunReport(report *models.RunReport) error {
	result, err := s.db.Exec(`INSERT INTO run_history
		(kind, started_at, finished_at, files_discovered, files_processed, files_succeeded, files_skipped, files_failed, outputs_written, success, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Kind, report.StartedAt, report.FinishedAt,
		report.FilesDiscovered, report.FilesProcessed, report.FilesSucceeded,
		report.FilesSkipped, report.FilesFailed, report.OutputsWritten,
		report.Success, report.Message)
	if err != nil {
		return fmt.Errorf("error inserting run report: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		report.ID = id
	}
	return nil
}

func (s *SQLRunStore) ListRunReports(limit int) ([]models.RunReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, kind, started_at, finished_at,
		files_discovered, files_processed, files_succeeded, files_skipped, files_failed,
		outputs_written, success, message
		FROM run_history ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying run history: %w", err)
	}
	defer rows.Close()

	var reports []models.RunReport
	for rows.Next() {
		var r models.RunReport
		var message sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt,
			&r.FilesDiscovered, &r.FilesProcessed, &r.FilesSucceeded, &r.FilesSkipped, &r.FilesFailed,
			&r.OutputsWritten, &r.Success, &message); err != nil {
			return nil, fmt.Errorf("error scanning run history row: %w", err)
		}
		r.Message = message.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
