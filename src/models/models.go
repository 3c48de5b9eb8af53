package models

import (
	"strings"
	"time"
)

// TickRecord is one trade tick parsed from a daily raw dump. It lives only
// for the duration of one file's aggregation and is never persisted.
type TickRecord struct {
	StockCode          string  `json:"stock_code"`   // STK_CODE, always 4 characters
	SellerBroker       string  `json:"seller_broker"` // BRK_COD1
	BuyerBroker        string  `json:"buyer_broker"`  // BRK_COD2
	Volume             float64 `json:"volume"`        // STK_VOLM, lots
	Price              float64 `json:"price"`         // STK_PRIC
	TradeDate          string  `json:"trade_date"`    // TRX_DATE, source-native format, used verbatim as merge key
	TradeTime          string  `json:"trade_time"`    // TRX_TIME
	Board              string  `json:"board"`         // TRX_TYPE market-segment code (RG/TN/NG)
	SellerInvestorType string  `json:"seller_investor_type"` // INV_TYP1
	BuyerInvestorType  string  `json:"buyer_investor_type"`  // INV_TYP2
}

// AggregateRow is one (entity, date) summary row, already rendered to the
// output artifact's cell values. Date is the merge key and the first column.
type AggregateRow struct {
	Date   string
	Fields []string
}

// CSVLine renders the row in the output artifact format (comma-delimited,
// date first).
func (r AggregateRow) CSVLine() string {
	return strings.Join(append([]string{r.Date}, r.Fields...), ",")
}

// FileOutcome records the fate of one source file within a run.
type FileOutcome struct {
	Path           string   `json:"path"`
	Success        bool     `json:"success"`
	Skipped        bool     `json:"skipped"`
	Reason         string   `json:"reason,omitempty"`
	OutputsWritten []string `json:"outputs_written,omitempty"`
}

// RunReport is the per-run summary handed back to the trigger surface and
// persisted to the run history store.
type RunReport struct {
	ID              int64         `json:"id,omitempty"`
	Kind            string        `json:"kind"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	FilesDiscovered int           `json:"files_discovered"`
	FilesProcessed  int           `json:"files_processed"`
	FilesSucceeded  int           `json:"files_succeeded"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesFailed     int           `json:"files_failed"`
	OutputsWritten  int           `json:"outputs_written"`
	ArtifactPaths   []string      `json:"artifact_paths,omitempty"`
	Outcomes        []FileOutcome `json:"outcomes,omitempty"`
	Success         bool          `json:"success"`
	Message         string        `json:"message,omitempty"`
}

// DailyPrice is one OHLCV bar returned by the price service.
type DailyPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}
