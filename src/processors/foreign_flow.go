package processors

import (
	"sort"
	"strconv"

	"github.com/username/idxflow/backend/src/models"
)

// ForeignInvestorType is the investor classification flagging a foreign
// counterparty ("asing") in the raw dumps; "D" marks domestic.
const ForeignInvestorType = "A"

// ForeignFlowCalculator derives daily net foreign buy/sell volume per stock.
type ForeignFlowCalculator struct {
	outputPrefix string
}

func NewForeignFlowCalculator(outputPrefix string) *ForeignFlowCalculator {
	return &ForeignFlowCalculator{outputPrefix: outputPrefix}
}

func (c *ForeignFlowCalculator) Kind() string         { return "foreign_flow" }
func (c *ForeignFlowCalculator) OutputPrefix() string { return c.outputPrefix }

func (c *ForeignFlowCalculator) Header() string {
	return "date,buy_volume,sell_volume,net_buy_volume"
}

func (c *ForeignFlowCalculator) Entities(rec models.TickRecord) []string {
	return []string{rec.StockCode}
}

type foreignFlowTotals struct {
	buyVolume  float64
	sellVolume float64
}

func (c *ForeignFlowCalculator) Aggregate(recs []models.TickRecord, idx StateIndex) map[string][]models.AggregateRow {
	totals := make(map[string]map[string]*foreignFlowTotals) // stock -> date -> totals

	for _, rec := range recs {
		// Defense in depth: the admissibility filter only samples, so pairs
		// already reflected in outputs are dropped again here.
		if idx.Has(rec.StockCode, rec.TradeDate) {
			continue
		}
		byDate, ok := totals[rec.StockCode]
		if !ok {
			byDate = make(map[string]*foreignFlowTotals)
			totals[rec.StockCode] = byDate
		}
		t, ok := byDate[rec.TradeDate]
		if !ok {
			t = &foreignFlowTotals{}
			byDate[rec.TradeDate] = t
		}
		if rec.BuyerInvestorType == ForeignInvestorType {
			t.buyVolume += rec.Volume
		}
		if rec.SellerInvestorType == ForeignInvestorType {
			t.sellVolume += rec.Volume
		}
	}

	result := make(map[string][]models.AggregateRow, len(totals))
	for stock, byDate := range totals {
		rows := make([]models.AggregateRow, 0, len(byDate))
		for date, t := range byDate {
			rows = append(rows, models.AggregateRow{
				Date: date,
				Fields: []string{
					formatNumber(t.buyVolume),
					formatNumber(t.sellVolume),
					formatNumber(t.buyVolume - t.sellVolume),
				},
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
		result[stock] = rows
	}
	return result
}

// formatNumber renders metric cells without a forced decimal point so that
// re-serializing unchanged data is byte-identical.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
