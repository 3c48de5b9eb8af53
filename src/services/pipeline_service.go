package services

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/models"
	"github.com/username/idxflow/backend/src/parsers"
	"github.com/username/idxflow/backend/src/processors"
	"github.com/username/idxflow/backend/src/storage"
	"github.com/username/idxflow/backend/src/utils"
)

// PipelineOptions are the orchestration knobs, populated from config at
// startup and injected explicitly.
type PipelineOptions struct {
	RawRoot         string
	FilePrefix      string
	BatchSize       int
	MaxConcurrent   int
	SampleLines     int
	FileTimeout     time.Duration
	HeapSoftLimitMB int
	MemoryPause     time.Duration
}

type pipelineServiceImpl struct {
	store        storage.BlobStorage
	parser       *parsers.TickParser
	calculators  map[string]processors.Calculator
	merger       *processors.MergeWriter
	runStore     RunStore     // optional
	emailService EmailService // optional
	opts         PipelineOptions
	filePattern  *regexp.Regexp

	mu         sync.Mutex
	activeRuns map[string]bool
	processing sync.Map // transient "file is being processed" markers
}

func NewPipelineService(
	store storage.BlobStorage,
	calculators map[string]processors.Calculator,
	runStore RunStore,
	emailService EmailService,
	opts PipelineOptions,
) PipelineService {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	pattern := regexp.MustCompile(
		`^` + regexp.QuoteMeta(opts.RawRoot) + `/(\d{8})/` + regexp.QuoteMeta(opts.FilePrefix) + `(\d{6})\.csv$`)
	return &pipelineServiceImpl{
		store:        store,
		parser:       parsers.NewTickParser(),
		calculators:  calculators,
		merger:       processors.NewMergeWriter(store),
		runStore:     runStore,
		emailService: emailService,
		opts:         opts,
		filePattern:  pattern,
		activeRuns:   make(map[string]bool),
	}
}

func (s *pipelineServiceImpl) Kinds() []string {
	kinds := make([]string, 0, len(s.calculators))
	for kind := range s.calculators {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (s *pipelineServiceImpl) Run(ctx context.Context, kind, dateHint string) (*models.RunReport, error) {
	calc, ok := s.calculators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if dateHint != "" && utils.ParseFolderDate(dateHint).IsZero() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDateHint, dateHint)
	}
	if !s.beginRun(kind) {
		logger.L.Warn("Refusing overlapping run", "kind", kind)
		return nil, ErrRunInProgress
	}
	defer s.endRun(kind)
	// Cleanup must happen even when the run bails out early.
	defer s.clearProcessingMarkers()

	startTime := time.Now().UTC()
	report := &models.RunReport{Kind: kind, StartedAt: startTime}
	logger.L.Info("Aggregation run START", "kind", kind, "dateHint", dateHint)

	files, err := s.discoverFiles(ctx, dateHint)
	if err != nil {
		report.FinishedAt = time.Now().UTC()
		report.Message = err.Error()
		s.finishRun(report)
		return report, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}
	report.FilesDiscovered = len(files)

	if len(files) == 0 {
		// An empty raw root is a successful no-op, not an error.
		report.Success = true
		report.Message = "no source files discovered"
		report.FinishedAt = time.Now().UTC()
		s.finishRun(report)
		logger.L.Info("Aggregation run END (no files)", "kind", kind)
		return report, nil
	}

	index := processors.LoadStateIndex(ctx, s.store, calc.OutputPrefix())

	for start := 0; start < len(files); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(files))
		outcomes := s.processBatch(ctx, calc, index, files[start:end])
		for _, outcome := range outcomes {
			s.tally(report, outcome)
		}
		s.memoryCheck()
	}

	report.Success = report.FilesFailed == 0
	report.Message = fmt.Sprintf("processed %d, succeeded %d, skipped %d, failed %d",
		report.FilesProcessed, report.FilesSucceeded, report.FilesSkipped, report.FilesFailed)
	report.FinishedAt = time.Now().UTC()
	s.finishRun(report)

	logger.L.Info("Aggregation run END", "kind", kind,
		"discovered", report.FilesDiscovered, "processed", report.FilesProcessed,
		"succeeded", report.FilesSucceeded, "skipped", report.FilesSkipped,
		"failed", report.FilesFailed, "outputs", report.OutputsWritten,
		"duration", time.Since(startTime))
	return report, nil
}

// discoverFiles lists raw dump candidates and orders them newest-date-first,
// so the most operationally relevant data lands first even if the run is
// interrupted. A non-empty dateHint narrows discovery to that date's folder.
func (s *pipelineServiceImpl) discoverFiles(ctx context.Context, dateHint string) ([]string, error) {
	listPrefix := s.opts.RawRoot + "/"
	if dateHint != "" {
		listPrefix += dateHint + "/"
	}
	paths, err := s.store.ListPaths(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", listPrefix, err)
	}

	type candidate struct {
		path       string
		folderDate string
	}
	var candidates []candidate
	for _, p := range paths {
		m := s.filePattern.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		folderTime := utils.ParseFolderDate(m[1])
		if folderTime.IsZero() {
			continue
		}
		// The file name's date must agree with its folder; a mismatch means a
		// misplaced dump, which is operator territory rather than input.
		if utils.CompactDate(folderTime) != m[2] {
			logger.L.Warn("Skipping dump whose name disagrees with its folder date", "path", p)
			continue
		}
		candidates = append(candidates, candidate{path: p, folderDate: m[1]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].folderDate != candidates[j].folderDate {
			return candidates[i].folderDate > candidates[j].folderDate
		}
		return candidates[i].path > candidates[j].path
	})

	files := make([]string, len(candidates))
	for i, c := range candidates {
		files[i] = c.path
	}
	return files, nil
}

// processBatch runs one batch of files under the concurrency limiter and
// settles every outcome; no file's failure aborts its siblings.
func (s *pipelineServiceImpl) processBatch(ctx context.Context, calc processors.Calculator, index processors.StateIndex, files []string) []models.FileOutcome {
	outcomes := make([]models.FileOutcome, len(files))
	sem := make(chan struct{}, s.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s.processing.Store(path, struct{}{})
			defer s.processing.Delete(path)

			outcomes[i] = s.processFileSafe(ctx, calc, index, path)
		}(i, path)
	}
	wg.Wait()
	return outcomes
}

func (s *pipelineServiceImpl) processFileSafe(ctx context.Context, calc processors.Calculator, index processors.StateIndex, path string) (outcome models.FileOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("Panic while processing file", "path", path, "panic", r)
			outcome = models.FileOutcome{Path: path, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if s.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FileTimeout)
		defer cancel()
	}
	return s.processFile(ctx, calc, index, path)
}

func (s *pipelineServiceImpl) processFile(ctx context.Context, calc processors.Calculator, index processors.StateIndex, path string) models.FileOutcome {
	fileStart := time.Now()

	content, err := s.store.DownloadText(ctx, path)
	if err != nil {
		logger.L.Warn("Failed to download source file", "path", path, "error", err)
		return models.FileOutcome{Path: path, Reason: fmt.Sprintf("download failed: %v", err)}
	}

	if !processors.NeedsProcessing(content, s.parser, calc, index, s.opts.SampleLines) {
		logger.L.Debug("Skipping file with no new dates", "path", path)
		return models.FileOutcome{Path: path, Success: true, Skipped: true, Reason: "no new dates"}
	}

	records, err := s.parser.Parse(content)
	if err != nil {
		logger.L.Warn("Failed to parse source file", "path", path, "error", err)
		return models.FileOutcome{Path: path, Reason: fmt.Sprintf("parse failed: %v", err)}
	}
	if len(records) == 0 {
		return models.FileOutcome{Path: path, Success: true, Skipped: true, Reason: "no usable records"}
	}

	groups := calc.Aggregate(records, index)
	if len(groups) == 0 {
		return models.FileOutcome{Path: path, Success: true, Skipped: true, Reason: "no new (entity, date) pairs"}
	}

	var written []string
	writeFailures := 0
	for entity, rows := range groups {
		artifactPath, err := s.merger.MergeAndWrite(ctx, calc.OutputPrefix(), calc.Header(), entity, rows)
		if err != nil {
			// One entity's write failure must not abort the others.
			logger.L.Warn("Failed to write entity artifact", "path", path, "entity", entity, "error", err)
			writeFailures++
			continue
		}
		written = append(written, artifactPath)
	}

	if writeFailures > 0 {
		// A partially written file is a failed file: the missing artifacts
		// must be retried by a later run, and the run summary has to say so.
		return models.FileOutcome{
			Path:           path,
			Reason:         fmt.Sprintf("%d of %d entity writes failed", writeFailures, len(groups)),
			OutputsWritten: written,
		}
	}

	outcome := models.FileOutcome{Path: path, Success: true, OutputsWritten: written}
	logger.L.Info("Processed source file", "path", path,
		"records", len(records), "entities", len(groups),
		"outputs", len(written), "duration", time.Since(fileStart))
	return outcome
}

func (s *pipelineServiceImpl) tally(report *models.RunReport, outcome models.FileOutcome) {
	report.Outcomes = append(report.Outcomes, outcome)
	if outcome.Skipped {
		report.FilesSkipped++
		return
	}
	report.FilesProcessed++
	if outcome.Success {
		report.FilesSucceeded++
	} else {
		report.FilesFailed++
	}
	report.OutputsWritten += len(outcome.OutputsWritten)
	report.ArtifactPaths = append(report.ArtifactPaths, outcome.OutputsWritten...)
}

// memoryCheck runs between batches: when the heap is over the soft limit,
// force a collection and pause before admitting the next batch.
func (s *pipelineServiceImpl) memoryCheck() {
	if s.opts.HeapSoftLimitMB <= 0 {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	limit := uint64(s.opts.HeapSoftLimitMB) * 1024 * 1024
	if m.HeapAlloc <= limit {
		return
	}
	logger.L.Warn("Heap above soft limit, forcing GC and pausing",
		"heapAllocMB", m.HeapAlloc/(1024*1024), "limitMB", s.opts.HeapSoftLimitMB)
	runtime.GC()
	time.Sleep(s.opts.MemoryPause)
}

func (s *pipelineServiceImpl) beginRun(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRuns[kind] {
		return false
	}
	s.activeRuns[kind] = true
	return true
}

func (s *pipelineServiceImpl) endRun(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeRuns, kind)
}

func (s *pipelineServiceImpl) clearProcessingMarkers() {
	leftover := 0
	s.processing.Range(func(key, _ any) bool {
		leftover++
		s.processing.Delete(key)
		return true
	})
	if leftover > 0 {
		logger.L.Warn("Cleared leftover processing markers", "count", leftover)
	}
}

// finishRun persists the report and raises an alert on failures. Both are
// best-effort; neither failure surfaces to the caller.
func (s *pipelineServiceImpl) finishRun(report *models.RunReport) {
	if s.runStore != nil {
		if err := s.runStore.SaveRunReport(report); err != nil {
			logger.L.Error("Failed to persist run report", "kind", report.Kind, "error", err)
		}
	}
	if s.emailService != nil && (!report.Success || report.FilesFailed > 0) {
		if err := s.emailService.SendRunAlert(report); err != nil {
			logger.L.Error("Failed to send run alert", "kind", report.Kind, "error", err)
		}
	}
}
