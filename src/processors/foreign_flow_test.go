package processors

import (
	"testing"

	"github.com/username/idxflow/backend/src/models"
)

func tick(stock, seller, buyer string, volume, price float64, date, sellerType, buyerType string) models.TickRecord {
	return models.TickRecord{
		StockCode:          stock,
		SellerBroker:       seller,
		BuyerBroker:        buyer,
		Volume:             volume,
		Price:              price,
		TradeDate:          date,
		SellerInvestorType: sellerType,
		BuyerInvestorType:  buyerType,
	}
}

func TestForeignFlowAggregateSingleForeignBuy(t *testing.T) {
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	recs := []models.TickRecord{
		tick("BBRI", "XY", "ZZ", 100, 4500, "2024-01-05", "D", "A"),
	}

	result := calc.Aggregate(recs, make(StateIndex))
	rows, ok := result["BBRI"]
	if !ok {
		t.Fatal("Expected rows for BBRI")
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Date != "2024-01-05" {
		t.Errorf("Expected date 2024-01-05, got %s", row.Date)
	}
	if row.Fields[0] != "100" || row.Fields[1] != "0" || row.Fields[2] != "100" {
		t.Errorf("Expected buy=100 sell=0 net=100, got %v", row.Fields)
	}
}

func TestForeignFlowAggregateNetSell(t *testing.T) {
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	recs := []models.TickRecord{
		tick("TLKM", "XY", "ZZ", 300, 3200, "2024-01-05", "A", "D"), // foreign seller
		tick("TLKM", "AB", "CD", 100, 3200, "2024-01-05", "D", "A"), // foreign buyer
		tick("TLKM", "AB", "CD", 50, 3200, "2024-01-05", "D", "D"),  // purely domestic
	}

	result := calc.Aggregate(recs, make(StateIndex))
	rows := result["TLKM"]
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Fields[0] != "100" || rows[0].Fields[1] != "300" || rows[0].Fields[2] != "-200" {
		t.Errorf("Expected buy=100 sell=300 net=-200, got %v", rows[0].Fields)
	}
}

func TestForeignFlowAggregateDiscardsKnownPairs(t *testing.T) {
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	idx := make(StateIndex)
	idx.Add("BBRI", "2024-01-05")

	recs := []models.TickRecord{
		tick("BBRI", "XY", "ZZ", 100, 4500, "2024-01-05", "D", "A"),
		tick("BBRI", "XY", "ZZ", 200, 4600, "2024-01-08", "D", "A"),
	}

	result := calc.Aggregate(recs, idx)
	rows := result["BBRI"]
	if len(rows) != 1 {
		t.Fatalf("Expected only the unknown date to survive, got %d rows", len(rows))
	}
	if rows[0].Date != "2024-01-08" {
		t.Errorf("Expected 2024-01-08, got %s", rows[0].Date)
	}
}

func TestForeignFlowAggregateSortsDatesDescending(t *testing.T) {
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	recs := []models.TickRecord{
		tick("BBRI", "XY", "ZZ", 100, 4500, "2024-01-05", "D", "A"),
		tick("BBRI", "XY", "ZZ", 100, 4500, "2024-01-09", "D", "A"),
		tick("BBRI", "XY", "ZZ", 100, 4500, "2024-01-07", "D", "A"),
	}

	rows := calc.Aggregate(recs, make(StateIndex))["BBRI"]
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	want := []string{"2024-01-09", "2024-01-07", "2024-01-05"}
	for i, date := range want {
		if rows[i].Date != date {
			t.Errorf("Row %d: expected date %s, got %s", i, date, rows[i].Date)
		}
	}
}
