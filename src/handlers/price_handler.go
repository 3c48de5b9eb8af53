package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/security/validation"
	"github.com/username/idxflow/backend/src/services"
	"github.com/username/idxflow/backend/src/utils"
)

type PriceHandler struct {
	priceService services.PriceService
}

func NewPriceHandler(priceService services.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

// HandleGetDailyHistory serves GET /api/prices/{ticker}?start=&end=.
// Defaults to the trailing 30 days when the range is omitted.
func (h *PriceHandler) HandleGetDailyHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.PathValue("ticker")))
	if err := validation.ValidateTicker(ticker); err != nil {
		utils.SendJSONError(w, "invalid ticker", http.StatusBadRequest)
		return
	}

	end := r.URL.Query().Get("end")
	start := r.URL.Query().Get("start")
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	if start == "" {
		start = time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	}

	prices, err := h.priceService.GetDailyHistory(ticker, start, end)
	if err != nil {
		logger.L.Warn("Failed to fetch daily history", "ticker", ticker, "error", err)
		utils.SendJSONError(w, "failed to fetch price history", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, map[string]interface{}{"ticker": ticker, "prices": prices}, http.StatusOK)
}
