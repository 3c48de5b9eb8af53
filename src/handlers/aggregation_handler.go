package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/models"
	"github.com/username/idxflow/backend/src/services"
	"github.com/username/idxflow/backend/src/utils"
)

type AggregationHandler struct {
	pipelineService services.PipelineService
	runStore        services.RunStore
}

func NewAggregationHandler(pipelineService services.PipelineService, runStore services.RunStore) *AggregationHandler {
	return &AggregationHandler{
		pipelineService: pipelineService,
		runStore:        runStore,
	}
}

// HandleRunAggregation triggers one pipeline run synchronously and returns
// its report. The scheduler treats a 2xx as "run finished", which is why
// this does not detach. An optional 'date' parameter (YYYYMMDD) restricts
// the run to one trading day's dump.
func (h *AggregationHandler) HandleRunAggregation(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		utils.SendJSONError(w, "missing required query parameter 'kind'", http.StatusBadRequest)
		return
	}
	dateHint := r.URL.Query().Get("date")

	logger.L.Info("Run trigger received", "kind", kind, "dateHint", dateHint, "remoteAddr", r.RemoteAddr)
	report, err := h.pipelineService.Run(r.Context(), kind, dateHint)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownKind):
			utils.SendJSONError(w, fmt.Sprintf("unknown aggregation kind %q", kind), http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidDateHint):
			utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYYMMDD", dateHint), http.StatusBadRequest)
		case errors.Is(err, services.ErrRunInProgress):
			utils.SendJSONError(w, fmt.Sprintf("a run for kind %q is already in progress", kind), http.StatusConflict)
		case errors.Is(err, services.ErrDiscoveryFailed):
			logger.L.Error("Run failed before starting", "kind", kind, "error", err)
			utils.SendJSONError(w, "could not list source files; run not started", http.StatusBadGateway)
		default:
			logger.L.Error("Internal error running aggregation", "kind", kind, "error", err)
			utils.SendJSONError(w, "an internal error occurred while running the aggregation", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, report, http.StatusOK)
}

func (h *AggregationHandler) HandleListKinds(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, map[string][]string{"kinds": h.pipelineService.Kinds()}, http.StatusOK)
}

func (h *AggregationHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	reports, err := h.runStore.ListRunReports(limit)
	if err != nil {
		logger.L.Error("Failed to list run history", "error", err)
		utils.SendJSONError(w, "failed to read run history", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.RunReport{}
	}
	utils.SendJSON(w, map[string]interface{}{"runs": reports}, http.StatusOK)
}
