package processors

import (
	"context"
	"path"
	"strings"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/storage"
)

// LoadStateIndex builds the per-entity date index for one aggregation kind
// by listing and parsing every existing output artifact under outputPrefix.
// Individual artifact read/parse failures skip that entity's contribution:
// missing state can only cause redundant recomputation, never data loss.
// Runs once at the start of a pipeline invocation.
func LoadStateIndex(ctx context.Context, store storage.BlobStorage, outputPrefix string) StateIndex {
	idx := make(StateIndex)

	paths, err := store.ListPaths(ctx, outputPrefix+"/")
	if err != nil {
		logger.L.Warn("Failed to list output artifacts, treating all state as unknown",
			"outputPrefix", outputPrefix, "error", err)
		return idx
	}

	for _, p := range paths {
		if !strings.HasSuffix(p, ".csv") {
			continue
		}
		entity := strings.TrimSuffix(path.Base(p), ".csv")
		if entity == "" {
			continue
		}

		content, err := store.DownloadText(ctx, p)
		if err != nil {
			logger.L.Debug("Skipping unreadable output artifact", "path", p, "error", err)
			continue
		}

		for _, date := range ArtifactDates(content) {
			idx.Add(entity, date)
		}
	}

	logger.L.Info("Existing-state index loaded", "outputPrefix", outputPrefix, "entities", len(idx))
	return idx
}

// ArtifactDates extracts the date keys (first column) from an output
// artifact's data rows.
func ArtifactDates(content string) []string {
	lines := strings.Split(content, "\n")
	var dates []string
	for i, line := range lines {
		if i == 0 { // header
			continue
		}
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		date, _, _ := strings.Cut(line, ",")
		if date != "" {
			dates = append(dates, date)
		}
	}
	return dates
}
