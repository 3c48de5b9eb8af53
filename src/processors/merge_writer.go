package processors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/username/idxflow/backend/src/models"
	"github.com/username/idxflow/backend/src/security/validation"
	"github.com/username/idxflow/backend/src/storage"
)

const artifactContentType = "text/csv"

// MergeWriter persists per-entity aggregate artifacts with the merge-write
// pattern: read existing, overlay new rows by date (new wins), rewrite the
// whole artifact sorted date-descending. Writes to the same entity artifact
// are serialized via a per-path lock, so two concurrently processed files
// covering different dates of one entity cannot drop each other's rows.
type MergeWriter struct {
	store storage.BlobStorage
	locks sync.Map // artifact path -> *sync.Mutex
}

func NewMergeWriter(store storage.BlobStorage) *MergeWriter {
	return &MergeWriter{store: store}
}

// MergeAndWrite merges newRows into the entity's artifact under outputPrefix
// and returns the artifact path. An absent artifact is treated as empty.
func (w *MergeWriter) MergeAndWrite(ctx context.Context, outputPrefix, header, entity string, newRows []models.AggregateRow) (string, error) {
	// The entity name comes from raw dump content and becomes a path segment.
	if err := validation.ValidateEntityName(entity); err != nil {
		return "", err
	}
	artifactPath := outputPrefix + "/" + entity + ".csv"

	muAny, _ := w.locks.LoadOrStore(artifactPath, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	existing, err := w.store.DownloadText(ctx, artifactPath)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return "", fmt.Errorf("failed to read existing artifact %q: %w", artifactPath, err)
		}
		existing = ""
	}

	merged := make(map[string]string) // date -> full data line
	for _, line := range strings.Split(existing, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "date,") {
			continue
		}
		date, _, ok := strings.Cut(line, ",")
		if !ok || date == "" {
			continue
		}
		merged[date] = line
	}
	for _, row := range newRows {
		merged[row.Date] = row.CSVLine()
	}

	dates := make([]string, 0, len(merged))
	for date := range merged {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, date := range dates {
		sb.WriteString(merged[date])
		sb.WriteByte('\n')
	}

	if err := w.store.UploadText(ctx, artifactPath, sb.String(), artifactContentType); err != nil {
		return "", fmt.Errorf("failed to upload artifact %q: %w", artifactPath, err)
	}
	return artifactPath, nil
}
