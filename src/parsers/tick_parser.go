package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/models"
)

// Raw daily dumps are semicolon-delimited with upper-snake-case headers.
const TickDelimiter = ';'

// Column names of the raw dump format.
const (
	colStockCode    = "STK_CODE"
	colSellerBroker = "BRK_COD1"
	colBuyerBroker  = "BRK_COD2"
	colVolume       = "STK_VOLM"
	colPrice        = "STK_PRIC"
	colTradeDate    = "TRX_DATE"
	colTradeTime    = "TRX_TIME"
	colBoard        = "TRX_TYPE"
	colSellerType   = "INV_TYP1"
	colBuyerType    = "INV_TYP2"
)

// RequiredColumns must all be present in a dump's header line; a file
// missing any of them is rejected as a whole.
var RequiredColumns = []string{
	colStockCode, colSellerBroker, colBuyerBroker,
	colVolume, colPrice, colTradeDate,
}

// ErrMissingColumn marks a structural file failure (required header absent).
var ErrMissingColumn = errors.New("required column missing")

const stockCodeLength = 4

type TickParser struct{}

func NewTickParser() *TickParser { return &TickParser{} }

// Parse turns one raw dump's text into tick records. Row-level problems
// (short rows, non-4-character stock codes, malformed numeric cells) degrade
// data quality, not availability: bad rows are skipped, bad numbers become 0.
// Only a missing required column fails the whole file.
func (p *TickParser) Parse(text string) ([]models.TickRecord, error) {
	records, _, err := p.parse(text, -1)
	return records, err
}

// ParsePrefix parses at most maxRows data rows and reports whether the
// prefix covered the entire file. It backs the admissibility filter, which
// must never skip a file on sample evidence alone.
func (p *TickParser) ParsePrefix(text string, maxRows int) ([]models.TickRecord, bool, error) {
	return p.parse(text, maxRows)
}

func (p *TickParser) parse(text string, maxRows int) ([]models.TickRecord, bool, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = TickDelimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, true, fmt.Errorf("failed to read header line: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, required := range RequiredColumns {
		if _, ok := colIndex[required]; !ok {
			return nil, true, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	headerWidth := len(header)

	var records []models.TickRecord
	rows := 0
	for {
		if maxRows >= 0 && rows >= maxRows {
			// Probe one more row to learn whether the prefix was the whole file.
			if _, err := reader.Read(); err == io.EOF {
				return records, true, nil
			}
			return records, false, nil
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line; skip it and keep going.
			continue
		}
		rows++

		if len(row) < headerWidth {
			continue
		}

		code := strings.TrimSpace(row[colIndex[colStockCode]])
		if len(code) != stockCodeLength {
			continue
		}

		rec := models.TickRecord{
			StockCode:    code,
			SellerBroker: strings.TrimSpace(row[colIndex[colSellerBroker]]),
			BuyerBroker:  strings.TrimSpace(row[colIndex[colBuyerBroker]]),
			Volume:       ParseNumber(row[colIndex[colVolume]]),
			Price:        ParseNumber(row[colIndex[colPrice]]),
			TradeDate:    strings.TrimSpace(row[colIndex[colTradeDate]]),
		}
		if i, ok := colIndex[colTradeTime]; ok && i < len(row) {
			rec.TradeTime = strings.TrimSpace(row[i])
		}
		if i, ok := colIndex[colBoard]; ok && i < len(row) {
			rec.Board = strings.TrimSpace(row[i])
		}
		if i, ok := colIndex[colSellerType]; ok && i < len(row) {
			rec.SellerInvestorType = strings.TrimSpace(row[i])
		}
		if i, ok := colIndex[colBuyerType]; ok && i < len(row) {
			rec.BuyerInvestorType = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	if len(records) == 0 && rows > 0 && logger.L != nil {
		logger.L.Debug("Tick file yielded no usable records", "rowsSeen", rows)
	}
	return records, true, nil
}

// ParseNumber coerces a numeric cell, defaulting to 0 on any malformation.
// Thousands separators are tolerated.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return v
	}
	return 0
}
