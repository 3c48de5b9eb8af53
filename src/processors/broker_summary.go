package processors

import (
	"sort"
	"strings"

	"github.com/username/idxflow/backend/src/models"
)

// Market-segment codes partitioning the broker summaries.
const (
	BoardRegular    = "RG"
	BoardNegotiated = "NG"
	BoardCash       = "TN"
)

// BrokerSummaryCalculator derives daily buyer/seller volume and value per
// broker for one market-segment code. Each tick contributes its buy side to
// the buyer broker and its sell side to the seller broker.
type BrokerSummaryCalculator struct {
	board        string
	outputPrefix string
}

func NewBrokerSummaryCalculator(board, outputPrefix string) *BrokerSummaryCalculator {
	return &BrokerSummaryCalculator{board: board, outputPrefix: outputPrefix}
}

func (c *BrokerSummaryCalculator) Kind() string {
	return "broker_summary_" + strings.ToLower(c.board)
}

func (c *BrokerSummaryCalculator) OutputPrefix() string { return c.outputPrefix }

func (c *BrokerSummaryCalculator) Header() string {
	return "date,buy_volume,buy_value,sell_volume,sell_value,net_buy_volume,net_sell_volume"
}

func (c *BrokerSummaryCalculator) Entities(rec models.TickRecord) []string {
	if rec.Board != c.board {
		return nil
	}
	if rec.BuyerBroker == rec.SellerBroker {
		return []string{rec.BuyerBroker}
	}
	return []string{rec.BuyerBroker, rec.SellerBroker}
}

type brokerTotals struct {
	buyVolume  float64
	buyValue   float64
	sellVolume float64
	sellValue  float64
}

func (c *BrokerSummaryCalculator) Aggregate(recs []models.TickRecord, idx StateIndex) map[string][]models.AggregateRow {
	totals := make(map[string]map[string]*brokerTotals) // broker -> date -> totals

	add := func(broker, date string) *brokerTotals {
		byDate, ok := totals[broker]
		if !ok {
			byDate = make(map[string]*brokerTotals)
			totals[broker] = byDate
		}
		t, ok := byDate[date]
		if !ok {
			t = &brokerTotals{}
			byDate[date] = t
		}
		return t
	}

	for _, rec := range recs {
		if rec.Board != c.board {
			continue
		}
		value := rec.Volume * rec.Price

		if rec.BuyerBroker != "" && !idx.Has(rec.BuyerBroker, rec.TradeDate) {
			t := add(rec.BuyerBroker, rec.TradeDate)
			t.buyVolume += rec.Volume
			t.buyValue += value
		}
		if rec.SellerBroker != "" && !idx.Has(rec.SellerBroker, rec.TradeDate) {
			t := add(rec.SellerBroker, rec.TradeDate)
			t.sellVolume += rec.Volume
			t.sellValue += value
		}
	}

	result := make(map[string][]models.AggregateRow, len(totals))
	for broker, byDate := range totals {
		rows := make([]models.AggregateRow, 0, len(byDate))
		for date, t := range byDate {
			// Sign correction: a negative raw net-buy is recorded entirely
			// under net-sell and vice versa; both are never positive at once.
			netBuy := t.buyVolume - t.sellVolume
			netSell := 0.0
			if netBuy < 0 {
				netSell = -netBuy
				netBuy = 0
			}
			rows = append(rows, models.AggregateRow{
				Date: date,
				Fields: []string{
					formatNumber(t.buyVolume),
					formatNumber(t.buyValue),
					formatNumber(t.sellVolume),
					formatNumber(t.sellValue),
					formatNumber(netBuy),
					formatNumber(netSell),
				},
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
		result[broker] = rows
	}
	return result
}
