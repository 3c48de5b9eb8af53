package processors

import (
	"context"
	"strings"
	"testing"

	"github.com/username/idxflow/backend/src/models"
	"github.com/username/idxflow/backend/src/storage"
)

const flowHeader = "date,buy_volume,sell_volume,net_buy_volume"

func TestMergeAndWriteCreatesArtifact(t *testing.T) {
	store := storage.NewMemoryStorage()
	writer := NewMergeWriter(store)

	rows := []models.AggregateRow{
		{Date: "2024-01-05", Fields: []string{"100", "0", "100"}},
	}
	path, err := writer.MergeAndWrite(context.Background(), "aggregates/foreign_flow", flowHeader, "BBRI", rows)
	if err != nil {
		t.Fatalf("MergeAndWrite failed: %v", err)
	}
	if path != "aggregates/foreign_flow/BBRI.csv" {
		t.Errorf("Unexpected artifact path: %s", path)
	}

	content, err := store.DownloadText(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	want := flowHeader + "\n2024-01-05,100,0,100\n"
	if content != want {
		t.Errorf("Artifact mismatch:\ngot:  %q\nwant: %q", content, want)
	}
}

func TestMergeAndWriteOverlaysByDate(t *testing.T) {
	store := storage.NewMemoryStorage()
	writer := NewMergeWriter(store)

	// Existing output with dates D1 and D3.
	store.Put("aggregates/foreign_flow/BBRI.csv", strings.Join([]string{
		flowHeader,
		"2024-01-07,50,10,40",  // D3
		"2024-01-05,100,0,100", // D1
	}, "\n")+"\n")

	// New computation produces D2 and a changed D3.
	rows := []models.AggregateRow{
		{Date: "2024-01-06", Fields: []string{"30", "5", "25"}},
		{Date: "2024-01-07", Fields: []string{"70", "20", "50"}},
	}
	path, err := writer.MergeAndWrite(context.Background(), "aggregates/foreign_flow", flowHeader, "BBRI", rows)
	if err != nil {
		t.Fatalf("MergeAndWrite failed: %v", err)
	}

	content, err := store.DownloadText(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	want := strings.Join([]string{
		flowHeader,
		"2024-01-07,70,20,50", // D3 entirely replaced, new values win
		"2024-01-06,30,5,25",
		"2024-01-05,100,0,100",
	}, "\n") + "\n"
	if content != want {
		t.Errorf("Merged artifact mismatch:\ngot:  %q\nwant: %q", content, want)
	}
}

func TestMergeAndWriteConcurrentSameEntity(t *testing.T) {
	store := storage.NewMemoryStorage()
	writer := NewMergeWriter(store)

	dates := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"}
	done := make(chan error, len(dates))
	for _, date := range dates {
		go func(date string) {
			_, err := writer.MergeAndWrite(context.Background(), "aggregates/foreign_flow", flowHeader, "BBRI",
				[]models.AggregateRow{{Date: date, Fields: []string{"1", "0", "1"}}})
			done <- err
		}(date)
	}
	for range dates {
		if err := <-done; err != nil {
			t.Fatalf("MergeAndWrite failed: %v", err)
		}
	}

	content, err := store.DownloadText(context.Background(), "aggregates/foreign_flow/BBRI.csv")
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	// Per-entity serialization must preserve every concurrent writer's date.
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != len(dates)+1 {
		t.Fatalf("Expected %d lines (header + %d dates), got %d:\n%s", len(dates)+1, len(dates), len(lines), content)
	}
}

func TestMergeAndWriteRejectsUnsafeEntityName(t *testing.T) {
	store := storage.NewMemoryStorage()
	writer := NewMergeWriter(store)

	for _, entity := range []string{"", "../../etc", "BBRI/x"} {
		_, err := writer.MergeAndWrite(context.Background(), "aggregates/foreign_flow", flowHeader, entity,
			[]models.AggregateRow{{Date: "2024-01-05", Fields: []string{"1", "0", "1"}}})
		if err == nil {
			t.Errorf("MergeAndWrite(%q) succeeded, want error", entity)
		}
	}
}
