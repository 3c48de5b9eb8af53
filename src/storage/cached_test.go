package storage

import (
	"context"
	"testing"
	"time"
)

func TestCachedDownloadHitsBackingStoreOnce(t *testing.T) {
	inner := NewMemoryStorage()
	inner.Put("raw/20240105/DT240105.csv", "content")
	cached := NewCachedStorage(inner, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := cached.DownloadText(context.Background(), "raw/20240105/DT240105.csv")
		if err != nil {
			t.Fatalf("DownloadText: %v", err)
		}
		if got != "content" {
			t.Fatalf("got %q, want %q", got, "content")
		}
	}
	if n := inner.DownloadCount("raw/20240105/DT240105.csv"); n != 1 {
		t.Errorf("backing store downloaded %d times, want 1", n)
	}
}

func TestCachedUploadWritesThrough(t *testing.T) {
	inner := NewMemoryStorage()
	cached := NewCachedStorage(inner, time.Minute, time.Minute)

	if err := cached.UploadText(context.Background(), "aggregates/foreign_flow/BBRI.csv", "header\nrow\n", "text/csv"); err != nil {
		t.Fatalf("UploadText: %v", err)
	}

	// The fresh write is served from cache without a backing-store read.
	got, err := cached.DownloadText(context.Background(), "aggregates/foreign_flow/BBRI.csv")
	if err != nil {
		t.Fatalf("DownloadText: %v", err)
	}
	if got != "header\nrow\n" {
		t.Fatalf("got %q", got)
	}
	if n := inner.DownloadCount("aggregates/foreign_flow/BBRI.csv"); n != 0 {
		t.Errorf("backing store downloaded %d times, want 0", n)
	}

	// The backing store itself holds the content.
	direct, err := inner.DownloadText(context.Background(), "aggregates/foreign_flow/BBRI.csv")
	if err != nil {
		t.Fatalf("inner DownloadText: %v", err)
	}
	if direct != "header\nrow\n" {
		t.Fatalf("inner got %q", direct)
	}
}

func TestCachedDownloadMissingObject(t *testing.T) {
	cached := NewCachedStorage(NewMemoryStorage(), time.Minute, time.Minute)
	_, err := cached.DownloadText(context.Background(), "raw/none.csv")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestCachedExistsConsultsCacheFirst(t *testing.T) {
	inner := NewMemoryStorage()
	inner.Put("raw/a.csv", "x")
	cached := NewCachedStorage(inner, time.Minute, time.Minute)

	if _, err := cached.DownloadText(context.Background(), "raw/a.csv"); err != nil {
		t.Fatalf("DownloadText: %v", err)
	}
	ok, err := cached.Exists(context.Background(), "raw/a.csv")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
	}
	ok, err = cached.Exists(context.Background(), "raw/b.csv")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false, nil", ok, err)
	}
}
