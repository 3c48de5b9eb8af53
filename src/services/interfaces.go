package services

import (
	"context"
	"errors"

	"github.com/username/idxflow/backend/src/models"
)

var (
	// ErrRunInProgress is returned when a run of the same aggregation kind
	// is already executing; overlapping runs are refused, not queued.
	ErrRunInProgress = errors.New("a run for this aggregation kind is already in progress")
	// ErrUnknownKind is returned for aggregation kinds nobody registered.
	ErrUnknownKind = errors.New("unknown aggregation kind")
	// ErrDiscoveryFailed marks the one run-level failure: source files could
	// not be listed at all, so the run never started.
	ErrDiscoveryFailed = errors.New("source file discovery failed")
	// ErrInvalidDateHint is returned when a date hint is not a YYYYMMDD date.
	ErrInvalidDateHint = errors.New("invalid date hint")
)

// PipelineService drives incremental aggregation runs.
type PipelineService interface {
	// Run executes one full pipeline invocation for the given kind. An empty
	// dateHint covers every discovered file; a YYYYMMDD hint restricts the
	// run to that trading day's dump. It is safe to invoke concurrently;
	// overlapping runs of the same kind return ErrRunInProgress. A report is
	// returned even on failure when one can be assembled.
	Run(ctx context.Context, kind, dateHint string) (*models.RunReport, error)
	// Kinds lists the registered aggregation kinds.
	Kinds() []string
}

// RunStore persists run reports for the audit/history surface.
type RunStore interface {
	SaveRunReport(report *models.RunReport) error
	ListRunReports(limit int) ([]models.RunReport, error)
}

// EmailService delivers operational alerts.
type EmailService interface {
	SendRunAlert(report *models.RunReport) error
}

// PriceService returns daily OHLCV history for an IDX ticker.
type PriceService interface {
	GetDailyHistory(ticker, startDate, endDate string) ([]models.DailyPrice, error)
}
